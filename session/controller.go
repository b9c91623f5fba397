package session

import (
	"context"
	"errors"
	"log"
	"time"

	"dashcam/recording"
	"dashcam/signaling"

	"golang.org/x/sync/errgroup"
)

// Snapshotter persists the current frame
type Snapshotter interface {
	Save() (string, error)
}

// RepeatRunner is a periodic snapshot task
type RepeatRunner interface {
	Start(ctx context.Context)
	SetInterval(d time.Duration)
	Stop()
	Done() <-chan struct{}
}

// VideoRunner is a video recording task
type VideoRunner interface {
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
}

// FrameCapture is the always-on preview acquisition
type FrameCapture interface {
	Stop()
}

// Options wires a Controller to its collaborators
type Options struct {
	Transport signaling.Transport
	// Messages is shared with the tasks so their status lines reach the phone
	Messages  *signaling.MessageQueue
	Capture   FrameCapture
	Snapshots Snapshotter
	NewRepeat func(interval time.Duration) RepeatRunner
	NewVideo  func() VideoRunner
}

// Controller owns one session: it reads commands, starts and stops the
// recording tasks and sends their status lines back over the transport.
type Controller struct {
	transport signaling.Transport
	commands  *signaling.CommandQueue
	messages  *signaling.MessageQueue
	ingestor  *signaling.Ingestor
	emitter   *signaling.Emitter

	capture   FrameCapture
	snapshots Snapshotter
	newRepeat func(interval time.Duration) RepeatRunner
	newVideo  func() VideoRunner

	// Only the dispatch loop touches these.
	mode    Mode
	repeat  RepeatRunner
	video   VideoRunner
	exiting bool
}

// NewController creates a controller; nothing runs until Run
func NewController(opts Options) *Controller {
	messages := opts.Messages
	if messages == nil {
		messages = signaling.NewMessageQueue()
	}
	commands := signaling.NewCommandQueue()

	return &Controller{
		transport: opts.Transport,
		commands:  commands,
		messages:  messages,
		ingestor:  signaling.NewIngestor(opts.Transport, commands),
		emitter:   signaling.NewEmitter(opts.Transport, messages),
		capture:   opts.Capture,
		snapshots: opts.Snapshots,
		newRepeat: opts.NewRepeat,
		newVideo:  opts.NewVideo,
	}
}

// Run serves the session until exit is received, ctx is cancelled or the
// transport fails. Every task and the frame capture are stopped before it
// returns, and the goodbye is sent after all pending messages. A transport
// failure is returned wrapping signaling.ErrTransportDisconnected.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("[SESSION] Controller started")
	c.messages.Post(MsgWelcome)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.ingestor.Run(gctx)
	})
	g.Go(func() error {
		err := c.loop(gctx)
		c.shutdown()
		// Cancel before closing so the ingestor treats the read error as shutdown.
		cancel()
		if cerr := c.transport.Close(); cerr != nil {
			log.Printf("[SESSION] Error closing transport: %v", cerr)
		}
		return err
	})

	err := g.Wait()
	if err != nil {
		log.Printf("[SESSION] Controller stopped: %v", err)
	} else {
		log.Printf("[SESSION] Controller stopped")
	}
	return err
}

func (c *Controller) loop(ctx context.Context) error {
	for {
		if err := c.emitter.Flush(); err != nil {
			return err
		}
		if c.exiting {
			return nil
		}

		select {
		case <-ctx.Done():
			log.Printf("[SESSION] Shutting down: %v", context.Cause(ctx))
			return nil
		case <-c.commands.Ready():
			c.dispatchBatch(ctx)
		case <-c.messages.Ready():
		case <-c.repeatDone():
			c.reapFinished()
		case <-c.videoDone():
			c.reapFinished()
		}
	}
}

// reapFinished forgets a task that has already exited on its own
func (c *Controller) reapFinished() {
	if c.repeat != nil && isDone(c.repeat.Done()) {
		log.Printf("[SESSION] Recurring capture ended on its own")
		c.repeat = nil
		c.mode = Idle
	}
	if c.video != nil && isDone(c.video.Done()) {
		log.Printf("[SESSION] Video recording ended on its own")
		c.video = nil
		c.mode = Idle
	}
}

func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// dispatchBatch handles every queued command in arrival order. Tasks that
// ended while the batch was waiting are cleared first so the mode is current.
func (c *Controller) dispatchBatch(ctx context.Context) {
	c.reapFinished()
	batch := c.commands.Drain()
	for i, line := range batch {
		c.dispatch(ctx, line)
		if c.exiting {
			if rest := len(batch) - i - 1; rest > 0 {
				log.Printf("[SESSION] Ignoring %d command(s) received after exit", rest)
			}
			return
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, line string) {
	cmd := ParseCommand(line)
	if len(cmd.Args) > 0 && !cmd.takesSeconds() {
		log.Printf("[SESSION] Ignoring unrecognized command: %q", line)
		return
	}

	switch cmd.Verb {
	case VerbCapture:
		c.handleCapture()
	case VerbRepeat:
		c.handleRepeat(ctx, cmd)
	case VerbSetTime:
		c.handleSetTime(cmd)
	case VerbStop:
		c.stopRepeat()
	case VerbRecord:
		c.handleRecord(ctx)
	case VerbEnd:
		c.stopVideo()
	case VerbExit:
		log.Printf("[SESSION] Exit requested")
		c.exiting = true
	case VerbHelp:
		c.messages.Post(HelpText)
	default:
		log.Printf("[SESSION] Ignoring unrecognized command: %q", line)
	}
}

func (c *Controller) handleCapture() {
	if c.mode == Recording {
		c.messages.Post(MsgCaptureBlocked)
		return
	}
	if _, err := c.snapshots.Save(); err != nil {
		log.Printf("[SESSION] Capture failed: %v", err)
		c.messages.Post(recording.MsgSaveFailed)
	}
}

func (c *Controller) handleRepeat(ctx context.Context, cmd Command) {
	switch c.mode {
	case Recording:
		c.messages.Post(MsgCaptureBlocked)
		return
	case Repeating:
		c.messages.Post(MsgRepeatAlreadyStarted)
		return
	}

	seconds, ok := c.parseSeconds(cmd)
	if !ok {
		return
	}

	// Confirm first so the task's own status lines follow it.
	c.messages.Post(repeatStartedMsg(seconds))
	task := c.newRepeat(time.Duration(seconds) * time.Second)
	task.Start(ctx)
	c.repeat = task
	c.mode = Repeating
	log.Printf("[SESSION] Recurring capture started every %ds", seconds)
}

func (c *Controller) handleSetTime(cmd Command) {
	if c.repeat == nil {
		log.Printf("[SESSION] setTime ignored, no recurring capture running")
		return
	}

	seconds, ok := c.parseSeconds(cmd)
	if !ok {
		return
	}

	c.repeat.SetInterval(time.Duration(seconds) * time.Second)
	log.Printf("[SESSION] Recurring capture interval set to %ds", seconds)
	c.messages.Post(intervalSetMsg(seconds))
}

func (c *Controller) parseSeconds(cmd Command) (int, bool) {
	seconds, err := cmd.Seconds()
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			log.Printf("[SESSION] Rejected %s: %v", cmd.Verb, err)
			c.messages.Post(invalidDurationMsg(cmd.Args[0]))
		}
		return 0, false
	}
	return seconds, true
}

func (c *Controller) handleRecord(ctx context.Context) {
	switch c.mode {
	case Repeating:
		c.messages.Post(MsgRecordBlocked)
		return
	case Recording:
		c.messages.Post(MsgVideoAlreadyRecording)
		return
	}

	task := c.newVideo()
	if err := task.Start(ctx); err != nil {
		log.Printf("[SESSION] Failed to start video recording: %v", err)
		c.messages.Post(MsgVideoOpenFailed)
		return
	}
	c.video = task
	c.mode = Recording
}

// stopRepeat stops the recurring capture, if any, and waits for it to exit
func (c *Controller) stopRepeat() {
	if c.repeat == nil {
		return
	}
	c.repeat.Stop()
	<-c.repeat.Done()
	c.repeat = nil
	c.mode = Idle
}

// stopVideo stops the recording, if any, and waits until the file is closed
func (c *Controller) stopVideo() {
	if c.video == nil {
		return
	}
	c.video.Stop()
	<-c.video.Done()
	c.video = nil
	c.mode = Idle
}

func (c *Controller) repeatDone() <-chan struct{} {
	if c.repeat == nil {
		return nil
	}
	return c.repeat.Done()
}

func (c *Controller) videoDone() <-chan struct{} {
	if c.video == nil {
		return nil
	}
	return c.video.Done()
}

// shutdown stops every worker, flushes what they posted, then says goodbye
func (c *Controller) shutdown() {
	c.stopRepeat()
	c.stopVideo()
	if c.capture != nil {
		c.capture.Stop()
	}

	if err := c.emitter.Flush(); err != nil {
		log.Printf("[SESSION] Failed to flush messages: %v", err)
	}
	if err := c.transport.Send(MsgGoodbye); err != nil {
		log.Printf("[SESSION] Failed to send goodbye: %v", err)
	}
}
