package jobsystem

import "github.com/rs/zerolog"

// zeroLogger is a tiny convenience wrapper around zerolog.Logger: callers
// pass alternating key/value pairs instead of building a zerolog.Event
// by hand, which keeps every call site in this module a single line. It
// is never used on the Push/Pop/Steal hot path, only around worker
// lifecycle events.
type zeroLogger struct {
	z zerolog.Logger
}

func (l zeroLogger) debug(msg string, kv ...interface{}) {
	ev := l.z.Debug()
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case int:
			ev = ev.Int(key, v)
		case string:
			ev = ev.Str(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
