package engine

import (
	"context"
	"log/slog"
	"time"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/dto"
	activityapp "shutterbook/internal/app/handlers/activity"
	availabilityapp "shutterbook/internal/app/handlers/availability"
	bookingapp "shutterbook/internal/app/handlers/booking"
	conversionapp "shutterbook/internal/app/handlers/conversion"
	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/middleware"
	"shutterbook/internal/app/outbox"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/app/uow"
)

// Deps are the collaborators the engine is assembled from. Only Store is
// required; a nil collaborator disables the concern it serves.
type Deps struct {
	Store       uow.UoWFactory
	Clients     policies.ClientDirectory
	Resources   policies.ResourceDirectory
	Packages    policies.PackageCatalog
	Financial   policies.FinancialRecordGenerator
	Audit       policies.AuditRecorder
	Activity    policies.ActivityReader
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	Authorizer  middleware.Authorizer
	Logger      *slog.Logger

	Clock           func() time.Time
	IDs             func() string
	DefaultCurrency string
	InvoiceDueDays  int
}

// Engine exposes the booking, scheduling and conversion operations through
// the command and query buses.
type Engine struct {
	Commands commands.Bus
	Queries  queries.Bus

	commandKeys []string
	queryKeys   []string
}

func New(d Deps) *Engine {
	if d.Store == nil {
		panic("engine: store required")
	}
	effects := &support.Effects{Audit: d.Audit, Outbox: d.Outbox, Encoder: d.Encoder, Logger: d.Logger}
	scheduler := &availabilityapp.Scheduler{
		Resources: d.Resources,
		Effects:   effects,
		Logger:    d.Logger,
		Clock:     d.Clock,
		IDs:       d.IDs,
	}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *dto.BookingView](cmdBus, &bookingapp.CreateBookingHandler{
		Clients: d.Clients, Resources: d.Resources, Effects: effects, Logger: d.Logger, Clock: d.Clock, IDs: d.IDs,
	})
	commands.RegisterHandler[bookingapp.UpdateBookingCommand, *dto.BookingView](cmdBus, &bookingapp.UpdateBookingHandler{
		Clients: d.Clients, Resources: d.Resources, Effects: effects, Logger: d.Logger, Clock: d.Clock,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingCommand, *dto.BookingView](cmdBus,
		bookingapp.NewConfirmBookingHandler(d.Resources, effects, d.Logger, d.Clock))
	commands.RegisterHandler[bookingapp.DeclineBookingCommand, *dto.BookingView](cmdBus,
		bookingapp.NewDeclineBookingHandler(effects, d.Logger, d.Clock))
	commands.RegisterHandler[bookingapp.CancelBookingCommand, *dto.BookingView](cmdBus,
		bookingapp.NewCancelBookingHandler(effects, d.Logger, d.Clock))
	commands.RegisterHandler[bookingapp.ReopenBookingCommand, *dto.BookingView](cmdBus,
		bookingapp.NewReopenBookingHandler(d.Resources, effects, d.Logger, d.Clock))
	commands.RegisterHandler[bookingapp.DeleteBookingCommand, *dto.DeletedResult](cmdBus,
		bookingapp.NewDeleteBookingHandler(effects, d.Logger, d.Clock))

	commands.RegisterHandler[availabilityapp.CreateSlotCommand, *dto.SlotView](cmdBus, availabilityapp.CreateSlotHandler{Scheduler: scheduler})
	commands.RegisterHandler[availabilityapp.BlockSlotCommand, *dto.SlotView](cmdBus, availabilityapp.BlockSlotHandler{Scheduler: scheduler})
	commands.RegisterHandler[availabilityapp.CreateRecurringCommand, *dto.RecurringResult](cmdBus, availabilityapp.CreateRecurringHandler{Scheduler: scheduler})
	commands.RegisterHandler[availabilityapp.DeleteSlotCommand, *dto.DeletedResult](cmdBus, availabilityapp.DeleteSlotHandler{Scheduler: scheduler})
	commands.RegisterHandler[availabilityapp.ReleaseSlotCommand, *dto.SlotView](cmdBus, availabilityapp.ReleaseSlotHandler{Scheduler: scheduler})
	commands.RegisterHandler[availabilityapp.BookSlotCommand, *dto.SlotView](cmdBus, availabilityapp.BookSlotHandler{Scheduler: scheduler})

	commands.RegisterHandler[conversionapp.ConvertBookingCommand, *dto.ConversionResult](cmdBus, &conversionapp.ConvertBookingHandler{
		Packages:        d.Packages,
		Financial:       d.Financial,
		Effects:         effects,
		Logger:          d.Logger,
		Clock:           d.Clock,
		IDs:             d.IDs,
		DefaultCurrency: d.DefaultCurrency,
		DueDays:         d.InvoiceDueDays,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[bookingapp.GetBookingQuery, *dto.BookingView](queryBus, &bookingapp.GetBookingHandler{UoWFactory: d.Store, Logger: d.Logger})
	queries.RegisterHandler[bookingapp.ListBookingsQuery, dto.BookingCollection](queryBus, &bookingapp.ListBookingsHandler{UoWFactory: d.Store, Logger: d.Logger})
	queries.RegisterHandler[availabilityapp.AvailableSlotsQuery, dto.SlotCollection](queryBus, &availabilityapp.AvailableSlotsHandler{UoWFactory: d.Store, Logger: d.Logger})
	queries.RegisterHandler[availabilityapp.ListSlotsQuery, dto.SlotCollection](queryBus, &availabilityapp.ListSlotsHandler{UoWFactory: d.Store, Logger: d.Logger})
	activity := d.Activity
	if reader, ok := d.Audit.(policies.ActivityReader); ok && activity == nil {
		activity = reader
	}
	queries.RegisterHandler[activityapp.RecentActivityQuery, dto.ActivityCollection](queryBus, &activityapp.RecentActivityHandler{Reader: activity, Logger: d.Logger})

	var authz middleware.CommandMiddleware
	if d.Authorizer != nil {
		authz = middleware.Authorization(d.Authorizer)
	}
	var idem middleware.CommandMiddleware
	if d.Idempotency != nil {
		idem = middleware.Idempotency(d.Idempotency, nil)
	}

	return &Engine{
		Commands: middleware.ChainCommands(cmdBus,
			middleware.Logging(d.Logger),
			authz,
			idem,
			middleware.AfterCommit(),
			middleware.Transaction(d.Store, nil),
		),
		Queries:     middleware.ChainQueries(queryBus, middleware.QueryLogging(d.Logger)),
		commandKeys: cmdBus.Keys(),
		queryKeys:   queryBus.Keys(),
	}
}

// CommandKeys lists every registered command key.
func (e *Engine) CommandKeys() []string { return append([]string(nil), e.commandKeys...) }

func (e *Engine) QueryKeys() []string { return append([]string(nil), e.queryKeys...) }

func (e *Engine) CreateBooking(ctx context.Context, cmd bookingapp.CreateBookingCommand) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.CreateBookingCommand, *dto.BookingView](ctx, e.Commands, cmd)
}

func (e *Engine) UpdateBooking(ctx context.Context, cmd bookingapp.UpdateBookingCommand) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.BookingView](ctx, e.Commands, cmd)
}

func (e *Engine) GetBooking(ctx context.Context, idOrReference string) (*dto.BookingView, error) {
	return queries.Ask[bookingapp.GetBookingQuery, *dto.BookingView](ctx, e.Queries, bookingapp.GetBookingQuery{IDOrReference: idOrReference})
}

func (e *Engine) ListBookings(ctx context.Context, q bookingapp.ListBookingsQuery) (dto.BookingCollection, error) {
	return queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](ctx, e.Queries, q)
}

func (e *Engine) ConfirmBooking(ctx context.Context, cmd bookingapp.ConfirmBookingCommand) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.BookingView](ctx, e.Commands, cmd)
}

func (e *Engine) DeclineBooking(ctx context.Context, id, reason string) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.DeclineBookingCommand, *dto.BookingView](ctx, e.Commands,
		bookingapp.DeclineBookingCommand{BookingID: id, Reason: reason})
}

func (e *Engine) CancelBooking(ctx context.Context, id string) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingView](ctx, e.Commands,
		bookingapp.CancelBookingCommand{BookingID: id})
}

func (e *Engine) ReopenBooking(ctx context.Context, id string) (*dto.BookingView, error) {
	return commands.Dispatch[bookingapp.ReopenBookingCommand, *dto.BookingView](ctx, e.Commands,
		bookingapp.ReopenBookingCommand{BookingID: id})
}

func (e *Engine) DeleteBooking(ctx context.Context, id string) (*dto.DeletedResult, error) {
	return commands.Dispatch[bookingapp.DeleteBookingCommand, *dto.DeletedResult](ctx, e.Commands,
		bookingapp.DeleteBookingCommand{BookingID: id})
}

func (e *Engine) ConvertBooking(ctx context.Context, cmd conversionapp.ConvertBookingCommand) (*dto.ConversionResult, error) {
	return commands.Dispatch[conversionapp.ConvertBookingCommand, *dto.ConversionResult](ctx, e.Commands, cmd)
}

func (e *Engine) CreateSlot(ctx context.Context, cmd availabilityapp.CreateSlotCommand) (*dto.SlotView, error) {
	return commands.Dispatch[availabilityapp.CreateSlotCommand, *dto.SlotView](ctx, e.Commands, cmd)
}

func (e *Engine) BlockSlot(ctx context.Context, cmd availabilityapp.BlockSlotCommand) (*dto.SlotView, error) {
	return commands.Dispatch[availabilityapp.BlockSlotCommand, *dto.SlotView](ctx, e.Commands, cmd)
}

func (e *Engine) CreateRecurring(ctx context.Context, cmd availabilityapp.CreateRecurringCommand) (*dto.RecurringResult, error) {
	return commands.Dispatch[availabilityapp.CreateRecurringCommand, *dto.RecurringResult](ctx, e.Commands, cmd)
}

func (e *Engine) DeleteSlot(ctx context.Context, slotID string) (*dto.DeletedResult, error) {
	return commands.Dispatch[availabilityapp.DeleteSlotCommand, *dto.DeletedResult](ctx, e.Commands,
		availabilityapp.DeleteSlotCommand{SlotID: slotID})
}

func (e *Engine) ReleaseSlot(ctx context.Context, slotID string) (*dto.SlotView, error) {
	return commands.Dispatch[availabilityapp.ReleaseSlotCommand, *dto.SlotView](ctx, e.Commands,
		availabilityapp.ReleaseSlotCommand{SlotID: slotID})
}

func (e *Engine) BookSlot(ctx context.Context, slotID, bookingID string) (*dto.SlotView, error) {
	return commands.Dispatch[availabilityapp.BookSlotCommand, *dto.SlotView](ctx, e.Commands,
		availabilityapp.BookSlotCommand{SlotID: slotID, BookingID: bookingID})
}

func (e *Engine) AvailableSlots(ctx context.Context, q availabilityapp.AvailableSlotsQuery) (dto.SlotCollection, error) {
	return queries.Ask[availabilityapp.AvailableSlotsQuery, dto.SlotCollection](ctx, e.Queries, q)
}

func (e *Engine) ListSlots(ctx context.Context, q availabilityapp.ListSlotsQuery) (dto.SlotCollection, error) {
	return queries.Ask[availabilityapp.ListSlotsQuery, dto.SlotCollection](ctx, e.Queries, q)
}

func (e *Engine) RecentActivity(ctx context.Context, q activityapp.RecentActivityQuery) (dto.ActivityCollection, error) {
	return queries.Ask[activityapp.RecentActivityQuery, dto.ActivityCollection](ctx, e.Queries, q)
}
