package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guidolog "github.com/teslashibe/go-guido/internal/log"
	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/robot"
	"github.com/teslashibe/go-guido/pkg/speech"
)

type dispatchFixture struct {
	d      *Dispatcher
	state  *State
	clock  *fakeClock
	voice  *speech.Recorder
	robot  *robot.Mock
	events *eventLog
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		state:  NewState(),
		clock:  newFakeClock(),
		voice:  speech.NewRecorder(),
		robot:  robot.NewMock(),
		events: &eventLog{},
	}
	f.d = NewDispatcher(DispatcherConfig{
		State:    f.state,
		Speaker:  f.voice,
		Actuator: f.robot,
		Clock:    f.clock,
		Events:   f.events,
		Logger:   guidolog.Discard(),
	})
	require.True(t, f.state.Activate(f.clock.Now()))
	return f
}

func TestDispatchToolRequest(t *testing.T) {
	f := newDispatchFixture(t)
	f.clock.Advance(time.Minute)

	cmd := command.Classify("please give me the hammer now", command.ModeActive)
	out := f.d.Dispatch(context.Background(), cmd)

	require.NoError(t, out.Err)
	assert.Equal(t, []string{"I will bring you the hammer. Please show me your hand."}, f.voice.Said())
	assert.Equal(t, []string{"hammer"}, f.robot.Deliveries())
	assert.Equal(t, epoch.Add(time.Minute), f.state.Snapshot().LastActivity)

	e, ok := f.events.Last(events.KindCommand)
	require.True(t, ok)
	assert.Equal(t, "tool_request", e.Data["kind"])
	assert.Equal(t, "hammer", e.Data["tool"])
	assert.Equal(t, f.state.Session(), e.Session)
}

func TestDispatchToolRequestWithoutTool(t *testing.T) {
	f := newDispatchFixture(t)

	out := f.d.Dispatch(context.Background(), command.Command{Kind: command.ToolRequest, Utterance: "bring it"})

	require.NoError(t, out.Err)
	assert.Equal(t, []string{"I didn't catch which tool you need. Please say it again."}, f.voice.Said())
	assert.Empty(t, f.robot.Deliveries())
}

func TestDispatchDeliveryFailureIsSoft(t *testing.T) {
	f := newDispatchFixture(t)
	f.robot.FailWith(errors.New("gripper jammed"))

	out := f.d.Dispatch(context.Background(), command.Command{Kind: command.ToolRequest, Tool: "wrench", Utterance: "wrench"})

	assert.ErrorContains(t, out.Err, "gripper jammed")
	assert.Equal(t, 1, f.voice.Count("I will bring you the wrench. Please show me your hand."))
	assert.True(t, f.state.Active())
}

func TestDispatchGuidanceRecitesTireChange(t *testing.T) {
	f := newDispatchFixture(t)

	cmd := command.Classify("i have a flat tire, guide me", command.ModeActive)
	require.Equal(t, command.Guidance, cmd.Kind)

	out := f.d.Dispatch(context.Background(), cmd)
	require.NoError(t, out.Err)
	assert.Equal(t, 9, out.Steps)

	said := f.voice.Said()
	require.Len(t, said, 12)
	assert.Equal(t, "I'll guide you through changing a car tire.", said[0])
	assert.Equal(t, "Procedure: How to Change a Car Tire", said[1])
	assert.Equal(t, "You will need: jack, lug wrench, wheel wedges, spare tire", said[2])
	assert.Equal(t, "Step 1: Find a safe, flat location and turn on hazard lights", said[3])
	assert.Equal(t, "Step 9: Stow all equipment and have spare tire repaired", said[11])
	for i, line := range said[3:] {
		assert.True(t, strings.HasPrefix(line, "Step "+string(rune('1'+i))+": "), line)
	}
}

func TestDispatchGuidanceOil(t *testing.T) {
	f := newDispatchFixture(t)

	out := f.d.Dispatch(context.Background(), command.Command{Kind: command.Guidance, Topic: "how do i change the oil"})

	assert.Equal(t, 11, out.Steps)
	assert.Equal(t, "Procedure: How to Change Engine Oil", f.voice.Said()[1])
}

func TestDispatchGuidanceMenuAndNoMatch(t *testing.T) {
	f := newDispatchFixture(t)

	f.d.Dispatch(context.Background(), command.Command{Kind: command.Guidance, Topic: "i need help"})
	assert.Equal(t, DefaultMessages().GuidanceMenu, f.voice.Said())

	f.voice.Reset()
	f.d.Dispatch(context.Background(), command.Command{Kind: command.Guidance, Topic: "repair the fence"})
	assert.Equal(t, []string{
		"I can help with tire changes or engine oil changes. Please specify which procedure you need.",
	}, f.voice.Said())
}

func TestDispatchGuidanceStopsWhenDeactivated(t *testing.T) {
	state := NewState()
	require.True(t, state.Activate(epoch))
	voice := &hookSpeaker{onSpeak: func(text string) {
		if strings.HasPrefix(text, "Step 2:") {
			state.Deactivate(ReasonInactivity)
		}
	}}
	d := NewDispatcher(DispatcherConfig{State: state, Speaker: voice, Actuator: robot.NewMock(), Logger: guidolog.Discard()})

	out := d.Dispatch(context.Background(), command.Command{Kind: command.Guidance, Topic: "flat tire"})

	assert.Equal(t, 2, out.Steps)
	assert.Len(t, voice.Said(), 5)
}

func TestDispatchGuidancePauseIsCancellable(t *testing.T) {
	state := NewState()
	require.True(t, state.Activate(epoch))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	voice := &hookSpeaker{onSpeak: func(text string) {
		if strings.HasPrefix(text, "Step 1:") {
			cancel()
		}
	}}
	d := NewDispatcher(DispatcherConfig{
		State:     state,
		Speaker:   voice,
		Actuator:  robot.NewMock(),
		StepPause: time.Hour,
		Logger:    guidolog.Discard(),
	})

	done := make(chan Outcome, 1)
	go func() { done <- d.Dispatch(ctx, command.Command{Kind: command.Guidance, Topic: "tire"}) }()

	select {
	case out := <-done:
		assert.Equal(t, 1, out.Steps)
		assert.ErrorIs(t, out.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pause was not cancelled")
	}
}

func TestDispatchTime(t *testing.T) {
	f := newDispatchFixture(t)

	f.d.Dispatch(context.Background(), command.Classify("what time is it", command.ModeActive))

	assert.Equal(t, []string{"The current time is 03:04 PM"}, f.voice.Said())
}

func TestDispatchDeactivate(t *testing.T) {
	f := newDispatchFixture(t)
	session := f.state.Session()

	out := f.d.Dispatch(context.Background(), command.Classify("go to sleep", command.ModeActive))

	assert.True(t, out.Deactivated)
	assert.False(t, f.state.Active())
	assert.Equal(t, ReasonCommand, f.state.Snapshot().LastReason)
	assert.Equal(t, []string{"Deactivating now. Goodbye!"}, f.voice.Said())

	e, ok := f.events.Last(events.KindDeactivated)
	require.True(t, ok)
	assert.Equal(t, session, e.Session)
	assert.Equal(t, "command", e.Data["reason"])
}

func TestDispatchOrganize(t *testing.T) {
	f := newDispatchFixture(t)

	f.d.Dispatch(context.Background(), command.Classify("please organize the bench", command.ModeActive))

	assert.Equal(t, []string{"I'm organizing the tools according to their classes."}, f.voice.Said())
	assert.Equal(t, 1, f.robot.Organizes())
}

func TestDispatchUnknownDoesNotRefresh(t *testing.T) {
	f := newDispatchFixture(t)
	f.clock.Advance(time.Minute)

	out := f.d.Dispatch(context.Background(), command.Classify("sing me a song", command.ModeActive))

	require.NoError(t, out.Err)
	assert.Equal(t, []string{"I didn't understand that command. Please try again."}, f.voice.Said())
	assert.True(t, f.state.Active())
	assert.Equal(t, epoch, f.state.Snapshot().LastActivity)
}

func TestDispatchEmptyHasNoEffect(t *testing.T) {
	f := newDispatchFixture(t)
	before := f.state.Snapshot()

	out := f.d.Dispatch(context.Background(), command.Classify("", command.ModeActive))

	assert.Equal(t, command.Unknown, out.Command.Kind)
	assert.Empty(t, f.voice.Said())
	assert.Empty(t, f.events.Kinds())
	assert.Equal(t, before, f.state.Snapshot())
}

func TestDispatchAfterTimeoutSpeaksAsleepNotice(t *testing.T) {
	f := newDispatchFixture(t)
	f.clock.Advance(16 * time.Minute)
	require.True(t, f.state.ExpireIfIdle(f.clock.Now(), 15*time.Minute))

	out := f.d.Dispatch(context.Background(), command.Command{Kind: command.ToolRequest, Tool: "plier", Utterance: "plier"})

	assert.True(t, out.Asleep)
	assert.Empty(t, f.robot.Deliveries())
	assert.Equal(t, []string{DefaultMessages().Asleep}, f.voice.Said())
	assert.False(t, f.state.Active())
}
