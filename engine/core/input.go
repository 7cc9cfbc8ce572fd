package core

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Commands understood on the engine input stream. They stand in for the
// scene buttons.
var inputCommands = map[string]SystemEventCode{
	"labels":   EVENT_CODE_TOGGLE_LABELS,
	"l":        EVENT_CODE_TOGGLE_LABELS,
	"location": EVENT_CODE_TOGGLE_LOCATION,
	"loc":      EVENT_CODE_TOGGLE_LOCATION,
	"quit":     EVENT_CODE_APPLICATION_QUIT,
	"q":        EVENT_CODE_APPLICATION_QUIT,
	"exit":     EVENT_CODE_APPLICATION_QUIT,
}

// InputCommandCode returns the event code bound to a command line.
func InputCommandCode(line string) (SystemEventCode, bool) {
	code, ok := inputCommands[strings.ToLower(strings.TrimSpace(line))]
	return code, ok
}

// InputProcess reads commands from r, one per line, and fires the matching
// events. It returns at EOF, after a quit command, or when ctx is done.
func InputProcess(ctx context.Context, r io.Reader, es *EventSystem) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		code, ok := InputCommandCode(line)
		if !ok {
			LogWarn("unknown command '%s'", line)
			continue
		}
		es.Fire(code, nil, EventContext{Data: line})
		if code == EVENT_CODE_APPLICATION_QUIT {
			return nil
		}
	}
	return scanner.Err()
}
