package logx

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	kit "lifepath/internal/transport"
)

// Well-known keys.
const (
	KeyComp    = "comp"
	KeyErr     = "err"
	KeyTrigger = "trigger"
	KeyDate    = "date"
	KeyChat    = "chat_id"
	KeyThread  = "thread_id"
	KeyReq     = "req_id"
	KeyCaller  = "caller"
)

// Field is a key/value pair attached to a record.
type Field struct {
	Key   string
	Value any
}

func (f Field) apply(e *zerolog.Event) {
	switch v := f.Value.(type) {
	case nil:
	case string:
		e.Str(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case uint64:
		e.Uint64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Duration:
		e.Dur(f.Key, v)
	case time.Time:
		e.Time(f.Key, v)
	case error:
		e.AnErr(f.Key, v)
	case kit.ChatTarget:
		e.Int64(KeyChat, v.ChatID)
		if v.ThreadID != 0 {
			e.Int(KeyThread, v.ThreadID)
		}
	case fmt.Stringer:
		e.Stringer(f.Key, v)
	default:
		e.Interface(f.Key, v)
	}
}

func String(k, v string) Field                 { return Field{k, v} }
func Int(k string, v int) Field                { return Field{k, v} }
func Int64(k string, v int64) Field            { return Field{k, v} }
func Uint64(k string, v uint64) Field          { return Field{k, v} }
func Bool(k string, v bool) Field              { return Field{k, v} }
func Duration(k string, v time.Duration) Field { return Field{k, v} }
func Time(k string, v time.Time) Field         { return Field{k, v} }
func Any(k string, v any) Field                { return Field{k, v} }

// Err records err under "err". A nil error adds nothing.
func Err(err error) Field {
	if err == nil {
		return Field{Key: KeyErr}
	}
	return Field{KeyErr, err}
}

// Comp names the component emitting the record.
func Comp(name string) Field { return Field{KeyComp, name} }

// Trigger names what started a dispatch: schedule, today or calc.
func Trigger(t string) Field { return Field{KeyTrigger, t} }

// Date records a calendar date through its String method.
func Date(d fmt.Stringer) Field { return Field{KeyDate, d} }

// Chat records a delivery target as chat_id and, for forum topics, thread_id.
func Chat(to kit.ChatTarget) Field { return Field{KeyChat, to} }

// ChatID records a bare chat id.
func ChatID(id int64) Field { return Field{KeyChat, id} }

// ReqID records a command request id.
func ReqID(id string) Field { return Field{KeyReq, id} }
