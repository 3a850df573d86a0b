package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Shell drives the entry and exit views from a line-oriented command stream.
type Shell struct {
	cache     *SnapshotCache
	form      *EntryForm
	entry     *EntryController
	exit      *ExitController
	view      *OccupiedView
	telemetry *TelemetryProvider
	scanner   *bufio.Scanner
	out       io.Writer
}

func NewShell(cache *SnapshotCache, entry *EntryController, exit *ExitController, view *OccupiedView, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		cache:     cache,
		form:      NewEntryForm(entry),
		entry:     entry,
		exit:      exit,
		view:      view,
		telemetry: telemetry,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("command.name", command))

	switch command {
	case "refresh":
		s.handleRefresh(ctx)
	case "slots":
		s.handleSlots()
	case "free":
		s.handleFree()
	case "plate":
		s.handlePlate(parts)
	case "assign":
		s.handleAssign(ctx, parts)
	case "occupied":
		s.handleOccupied()
	case "search":
		s.handleSearch(parts)
	case "page":
		s.handlePage(parts)
	case "next":
		s.handleMove(s.view.NextPage)
	case "prev":
		s.handleMove(s.view.PrevPage)
	case "bill":
		s.handleBill(parts)
	case "exit":
		s.handleExit(ctx, parts)
	default:
		trace.SpanFromContext(ctx).AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleRefresh(ctx context.Context) {
	if err := s.cache.Refresh(ctx); err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	s.printf("Loaded %d slots\n", len(s.cache.Current()))
}

func (s *Shell) handleSlots() {
	slots := s.cache.Current()
	if len(slots) == 0 {
		s.printf("No slots loaded\n")
		return
	}
	s.printSlots(slots)
}

func (s *Shell) handleFree() {
	free := s.entry.FreeSlots()
	if len(free) == 0 {
		s.printf("Sorry, parking lot is full\n")
		return
	}

	labels := make([]string, 0, len(free))
	for _, slot := range free {
		labels = append(labels, fmt.Sprintf("%d:%s", slot.ID, slot.Number))
	}
	s.printf("Free slots: %s\n", strings.Join(labels, " "))
}

func (s *Shell) handlePlate(parts []string) {
	if len(parts) != 2 {
		s.printf("Usage: plate <vehicle_number>\n")
		return
	}
	s.form.SetVehicleNumber(parts[1])
	if !s.form.Valid() {
		s.printf("Invalid vehicle number\n")
	}
}

func (s *Shell) handleAssign(ctx context.Context, parts []string) {
	if len(parts) < 2 || len(parts) > 3 {
		s.printf("Usage: assign <slot_id> [vehicle_number]\n")
		return
	}

	slotID, err := strconv.Atoi(parts[1])
	if err != nil {
		s.printf("Invalid slot id\n")
		return
	}
	if len(parts) == 3 {
		s.form.SetVehicleNumber(parts[2])
	}

	slot, err := s.form.Submit(ctx, slotID)
	switch {
	case errors.Is(err, ErrInvalidPlate):
		s.printf("Invalid vehicle number\n")
	case err != nil:
		s.printf("Error: %s\n", err.Error())
	default:
		s.printf("Allocated slot %s to %s\n", slot.Number, slot.VehicleNumber())
	}
}

func (s *Shell) handleOccupied() {
	page := s.view.Page()
	if len(page) == 0 {
		s.printf("No occupied slots\n")
		return
	}
	s.printSlots(page)
	s.printf("Page %d of %d\n", s.view.CurrentPage(), s.view.TotalPages())
}

func (s *Shell) handleSearch(parts []string) {
	s.view.SetSearch(strings.Join(parts[1:], " "))
	s.printf("%d matching slots\n", len(s.view.Filtered()))
}

func (s *Shell) handlePage(parts []string) {
	if len(parts) != 2 {
		s.printf("Usage: page <n>\n")
		return
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		s.printf("Invalid page\n")
		return
	}
	s.handleMove(func() bool { return s.view.GoToPage(n) })
}

func (s *Shell) handleMove(move func() bool) {
	if !move() {
		s.printf("Page out of range\n")
		return
	}
	s.printf("Page %d of %d\n", s.view.CurrentPage(), s.view.TotalPages())
}

func (s *Shell) handleBill(parts []string) {
	slotID, ok := s.slotArg(parts, "bill")
	if !ok {
		return
	}
	receipt, err := s.exit.Quote(slotID)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	s.printf("Slot %s: %d hour(s), bill %d\n", receipt.SlotNumber, receipt.Hours, receipt.Amount)
}

func (s *Shell) handleExit(ctx context.Context, parts []string) {
	slotID, ok := s.slotArg(parts, "exit")
	if !ok {
		return
	}
	receipt, err := s.exit.Exit(ctx, slotID)
	if err != nil {
		s.printf("Error: %s\n", err.Error())
		return
	}
	s.printf("%s\n", receipt.Message())
}

func (s *Shell) slotArg(parts []string, command string) (int, bool) {
	if len(parts) != 2 {
		s.printf("Usage: %s <slot_id>\n", command)
		return 0, false
	}
	slotID, err := strconv.Atoi(parts[1])
	if err != nil {
		s.printf("Invalid slot id\n")
		return 0, false
	}
	return slotID, true
}

func (s *Shell) printSlots(slots []Slot) {
	s.printf("ID\tSlot\tVehicle No\tEntry\n")
	for _, slot := range slots {
		entry := "-"
		if !slot.EntryTime().IsZero() {
			entry = slot.EntryTime().Format("2006-01-02 15:04")
		}
		vehicle := slot.VehicleNumber()
		if vehicle == "" {
			vehicle = "-"
		}
		s.printf("%d\t%s\t%s\t%s\n", slot.ID, slot.Number, vehicle, entry)
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
