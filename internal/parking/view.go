package parking

import (
	"strings"
	"sync"
)

const DefaultPageSize = 5

// MatchesSearch reports whether term is a case-insensitive substring of the
// slot label or the vehicle number. An empty term matches everything.
func MatchesSearch(slot Slot, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(slot.Number), term) ||
		strings.Contains(strings.ToLower(slot.VehicleNumber()), term)
}

// FilterOccupied keeps the occupied slots matching term.
func FilterOccupied(slots []Slot, term string) []Slot {
	filtered := []Slot{}
	for _, slot := range slots {
		if slot.Occupied() && MatchesSearch(slot, term) {
			filtered = append(filtered, slot)
		}
	}
	return filtered
}

func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns page (1-based) of slots. Pages past the end are empty.
func Paginate(slots []Slot, page, pageSize int) []Slot {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return []Slot{}
	}
	start := (page - 1) * pageSize
	if start >= len(slots) {
		return []Slot{}
	}
	end := min(start+pageSize, len(slots))
	return append([]Slot(nil), slots[start:end]...)
}

// OccupiedView is the searchable, paginated list of occupied slots shown at
// exit. Changing the search term keeps the current page; the page is pulled
// back into range when the filtered set shrinks under it.
type OccupiedView struct {
	cache    *SnapshotCache
	pageSize int

	mu          sync.Mutex
	search      string
	currentPage int
}

func NewOccupiedView(cache *SnapshotCache, pageSize int) *OccupiedView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	v := &OccupiedView{
		cache:       cache,
		pageSize:    pageSize,
		currentPage: 1,
	}
	cache.Subscribe(func(slots []Slot) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.clamp(len(FilterOccupied(slots, v.search)))
	})
	return v
}

func (v *OccupiedView) PageSize() int {
	return v.pageSize
}

func (v *OccupiedView) SetSearch(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = term
}

func (v *OccupiedView) Search() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.search
}

func (v *OccupiedView) Filtered() []Slot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filtered()
}

func (v *OccupiedView) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return TotalPages(len(v.filtered()), v.pageSize)
}

func (v *OccupiedView) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clamp(len(v.filtered()))
	return v.currentPage
}

// Page returns the slots on the current page.
func (v *OccupiedView) Page() []Slot {
	v.mu.Lock()
	defer v.mu.Unlock()
	filtered := v.filtered()
	v.clamp(len(filtered))
	return Paginate(filtered, v.currentPage, v.pageSize)
}

// GoToPage moves to page n. Pages outside [1, TotalPages] are ignored and
// false is returned.
func (v *OccupiedView) GoToPage(n int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > TotalPages(len(v.filtered()), v.pageSize) {
		return false
	}
	v.currentPage = n
	return true
}

func (v *OccupiedView) NextPage() bool {
	return v.GoToPage(v.CurrentPage() + 1)
}

func (v *OccupiedView) PrevPage() bool {
	return v.GoToPage(v.CurrentPage() - 1)
}

func (v *OccupiedView) filtered() []Slot {
	return FilterOccupied(v.cache.Current(), v.search)
}

func (v *OccupiedView) clamp(count int) {
	if total := TotalPages(count, v.pageSize); v.currentPage > total {
		v.currentPage = total
	}
	if v.currentPage < 1 {
		v.currentPage = 1
	}
}
