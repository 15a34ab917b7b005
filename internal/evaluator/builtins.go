package evaluator

import (
	"strconv"
	"strings"

	"github.com/funvibe/weaver/internal/config"
)

// builtinTypes are the host types bodies may use without declaring them.
var builtinTypes = map[string]struct{}{
	"Console":           {},
	"Task":              {},
	"CancellationToken": {},
}

func builtinMember(b *Builtin, name string) Object {
	switch b.Name + "." + name {
	case "Task.CompletedTask":
		return &Task{Value: NULL}
	case "CancellationToken.None":
		return NULL
	}
	return newError("%s has no member %s", b.Name, name)
}

func (e *Evaluator) callBuiltin(b *Builtin, name string, args []Object) Object {
	switch b.Name + "." + name {
	case "Console.WriteLine":
		e.out = append(e.out, format(args))
		return NULL
	case "Task.Delay", "Task.Yield":
		return &Task{Value: NULL}
	case "Task.FromResult":
		if len(args) != 1 {
			return newError("Task.FromResult takes one argument, got %d", len(args))
		}
		return &Task{Value: args[0]}
	}
	return newError("%s has no method %s", b.Name, name)
}

// callSequence implements the buffering helpers the weaver emits between
// links of different shapes.
func (e *Evaluator) callSequence(s *Sequence, name string, args []Object) Object {
	switch name {
	case config.BufferHelper:
		items, err := s.drain()
		if err != nil {
			return err
		}
		return newList(items, s.Async)
	case config.BufferAsyncHelper:
		if len(args) > 1 {
			return newError("%s takes at most one argument", name)
		}
		items, err := s.drain()
		if err != nil {
			return err
		}
		return &Task{Value: newList(items, s.Async)}
	}
	return newError("sequence has no method %s", name)
}

// format renders Console.WriteLine arguments: a composite format string with
// {n} placeholders, or a single value.
func format(args []Object) string {
	if len(args) == 0 {
		return ""
	}
	if len(args) == 1 {
		return args[0].Inspect()
	}
	f := args[0].Inspect()
	var sb strings.Builder
	for i := 0; i < len(f); i++ {
		if f[i] == '{' {
			if end := strings.IndexByte(f[i:], '}'); end > 0 {
				if n, err := strconv.Atoi(f[i+1 : i+end]); err == nil && n >= 0 && n+1 < len(args) {
					sb.WriteString(args[n+1].Inspect())
					i += end
					continue
				}
			}
		}
		sb.WriteByte(f[i])
	}
	return sb.String()
}
