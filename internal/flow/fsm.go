// Package flow drives the per-conversation input state machine: collect an
// interval label, collect a message text, create the reminder; or collect a
// reminder id and delete it.
//
// Conversation state is in-memory only. A process restart drops every owner
// back to Idle, which is by design: mid-flow input is not durable.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"remindbot/internal/interval"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// State of one owner's conversation. Absent map entry means Idle.
type State int

const (
	StateIdle State = iota
	StateAwaitingInterval
	StateAwaitingMessage
	StateAwaitingDeleteID
)

type conversation struct {
	state         State
	intervalLabel string // set while in StateAwaitingMessage
}

// Scheduler is the part of the delivery service the FSM drives.
type Scheduler interface {
	StartLoop(r storage.Reminder) error
	CancelLoop(id int64)
}

// FSM routes inbound messages by the owner's conversation state.
//
// Callers must not invoke HandleMessage concurrently for the same owner;
// the app dispatcher serializes per owner and parallelizes across owners.
type FSM struct {
	mu   sync.Mutex
	conv map[int64]*conversation

	store   *storage.Store
	sched   Scheduler
	adapter transport.Adapter
	log     logx.Logger
}

func New(store *storage.Store, sched Scheduler, adapter transport.Adapter, log logx.Logger) *FSM {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &FSM{
		conv:    map[int64]*conversation{},
		store:   store,
		sched:   sched,
		adapter: adapter,
		log:     log,
	}
}

// StateOf reports the owner's current conversation state.
func (f *FSM) StateOf(ownerID int64) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conv[ownerID]; ok {
		return c.state
	}
	return StateIdle
}

func (f *FSM) setState(ownerID int64, st State, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st == StateIdle {
		delete(f.conv, ownerID)
		return
	}
	f.conv[ownerID] = &conversation{state: st, intervalLabel: label}
}

// HandleMessage advances the owner's conversation. Commands always win over
// state input, so a user can bail out of a half-finished flow by issuing a
// new command.
func (f *FSM) HandleMessage(ctx context.Context, msg *transport.Message) {
	if msg == nil {
		return
	}
	ownerID := msg.ChatID

	if msg.Command != "" {
		f.handleCommand(ctx, ownerID, msg.Command)
		return
	}

	switch f.StateOf(ownerID) {
	case StateAwaitingInterval:
		f.handleIntervalInput(ctx, ownerID, msg.Text)
	case StateAwaitingMessage:
		f.handleMessageInput(ctx, ownerID, msg.Text)
	case StateAwaitingDeleteID:
		f.handleDeleteInput(ctx, ownerID, msg.Text)
	default:
		// Plain text outside a flow is ignored.
		f.log.Debug("text outside flow ignored", logx.Int64("owner_id", ownerID))
	}
}

func (f *FSM) handleCommand(ctx context.Context, ownerID int64, cmd string) {
	switch cmd {
	case "help", "start":
		f.setState(ownerID, StateIdle, "")
		f.reply(ctx, ownerID, textHelp, nil)
		f.reply(ctx, ownerID, textHelpKeyboardHint, [][]string{
			{"/remind", "/list_reminders", "/delete_reminder"},
		})
	case "remind":
		f.setState(ownerID, StateAwaitingInterval, "")
		f.reply(ctx, ownerID, textChooseInterval, interval.KeyboardRows())
	case "list_reminders":
		f.setState(ownerID, StateIdle, "")
		f.listReminders(ctx, ownerID)
	case "delete_reminder":
		f.startDeleteFlow(ctx, ownerID)
	default:
		f.log.Debug("unknown command ignored",
			logx.Int64("owner_id", ownerID), logx.String("command", cmd))
	}
}

func (f *FSM) handleIntervalInput(ctx context.Context, ownerID int64, text string) {
	label := strings.TrimSpace(text)
	if !interval.Valid(label) {
		// Input not consumed as data; the owner stays in the same state.
		f.reply(ctx, ownerID, textIntervalInvalid, nil)
		return
	}
	f.setState(ownerID, StateAwaitingMessage, label)
	f.reply(ctx, ownerID, textEnterMessage, nil)
}

func (f *FSM) handleMessageInput(ctx context.Context, ownerID int64, text string) {
	f.mu.Lock()
	c := f.conv[ownerID]
	f.mu.Unlock()
	if c == nil {
		return
	}

	r, err := f.store.Create(ctx, ownerID, c.intervalLabel, text)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidMessage) {
			// Re-prompt; state unchanged.
			f.reply(ctx, ownerID, textEnterMessage, nil)
			return
		}
		f.log.Error("reminder create failed", logx.Int64("owner_id", ownerID), logx.Err(err))
		return
	}

	if err := f.sched.StartLoop(r); err != nil {
		f.log.Error("delivery loop start failed",
			logx.Int64("reminder_id", r.ID), logx.Int64("owner_id", ownerID), logx.Err(err))
	}

	f.setState(ownerID, StateIdle, "")
	f.reply(ctx, ownerID, fmt.Sprintf(textReminderSet, r.IntervalLabel, r.MessageText), nil)
}

func (f *FSM) listReminders(ctx context.Context, ownerID int64) {
	reminders, err := f.store.ListByOwner(ctx, ownerID)
	if err != nil {
		f.log.Error("list reminders failed", logx.Int64("owner_id", ownerID), logx.Err(err))
		return
	}
	if len(reminders) == 0 {
		f.reply(ctx, ownerID, textNoReminders, nil)
		return
	}
	f.reply(ctx, ownerID, fmt.Sprintf(textYourReminders, formatReminders(reminders)), nil)
}

func (f *FSM) startDeleteFlow(ctx context.Context, ownerID int64) {
	reminders, err := f.store.ListByOwner(ctx, ownerID)
	if err != nil {
		f.log.Error("list reminders failed", logx.Int64("owner_id", ownerID), logx.Err(err))
		return
	}
	if len(reminders) == 0 {
		f.setState(ownerID, StateIdle, "")
		f.reply(ctx, ownerID, textNoRemindersToDelete, nil)
		return
	}
	f.setState(ownerID, StateAwaitingDeleteID, "")
	f.reply(ctx, ownerID, fmt.Sprintf(textDeletePrompt, formatReminders(reminders)), nil)
}

func (f *FSM) handleDeleteInput(ctx context.Context, ownerID int64, text string) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		f.reply(ctx, ownerID, textDeleteBadID, nil)
		return
	}

	// The ownership check lives in the store; an id owned by someone else
	// reads as not found.
	if err := f.store.DeleteByOwnerAndID(ctx, ownerID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			f.reply(ctx, ownerID, textDeleteNotFound, nil)
			return
		}
		f.log.Error("reminder delete failed",
			logx.Int64("reminder_id", id), logx.Int64("owner_id", ownerID), logx.Err(err))
		return
	}

	f.sched.CancelLoop(id)
	f.setState(ownerID, StateIdle, "")
	f.reply(ctx, ownerID, textReminderDeleted, nil)
}

func formatReminders(reminders []storage.Reminder) string {
	lines := make([]string, 0, len(reminders))
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf("%d: %s (интервал: %s)", r.ID, r.MessageText, r.IntervalLabel))
	}
	return strings.Join(lines, "\n")
}

func (f *FSM) reply(ctx context.Context, ownerID int64, text string, keyboard [][]string) {
	opt := &transport.SendOptions{ParseMode: parseMode, ReplyKeyboard: keyboard}
	if err := f.adapter.SendText(ctx, transport.ChatTarget{ChatID: ownerID}, text, opt); err != nil {
		f.log.Warn("reply failed", logx.Int64("owner_id", ownerID), logx.Err(err))
	}
}
