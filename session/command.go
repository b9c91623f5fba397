package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dashcam/config"
)

// ErrInvalidArgument is returned for a malformed command argument
var ErrInvalidArgument = errors.New("invalid argument")

// maxSeconds is the largest interval that still fits in a time.Duration
const maxSeconds = math.MaxInt64 / int64(time.Second)

// Command verbs
const (
	VerbCapture = "capture"
	VerbRepeat  = "repeat"
	VerbSetTime = "setTime"
	VerbStop    = "stop"
	VerbRecord  = "record"
	VerbEnd     = "end"
	VerbExit    = "exit"
	VerbHelp    = "help"
)

// Command is one decoded line: a verb and its arguments
type Command struct {
	Verb string
	Args []string
}

// ParseCommand splits a line on whitespace
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Verb: fields[0], Args: fields[1:]}
}

// takesSeconds reports whether the verb accepts an optional seconds argument.
// Every other verb must appear alone on its line to be recognized.
func (c Command) takesSeconds() bool {
	return c.Verb == VerbRepeat || c.Verb == VerbSetTime
}

// Seconds returns the interval argument, or the default when none was given.
// Values that are not whole positive numbers, or too large for a
// time.Duration, wrap ErrInvalidArgument.
func (c Command) Seconds() (int, error) {
	if len(c.Args) == 0 {
		return config.DefaultRepeatSeconds, nil
	}

	n, err := strconv.Atoi(c.Args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, c.Args[0])
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d is not a positive duration", ErrInvalidArgument, n)
	}
	if int64(n) > maxSeconds {
		return 0, fmt.Errorf("%w: %d seconds is out of range", ErrInvalidArgument, n)
	}
	return n, nil
}
