package command

import (
	"strings"
	"time"

	"redisd/internal/keyspace"
	"redisd/internal/resp"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ConfigLookup resolves an introspected config parameter name to its
// startup value. ok is false for any parameter other than the two named
// in spec.md ("dir", "dbfilename").
type ConfigLookup func(param string) (value string, ok bool)

// Apply executes a parsed Command against the keyspace engine and the
// config lookup, returning the exact reply bytes to write back to the
// connection.
func Apply(cmd Command, ks *keyspace.Engine, lookupConfig ConfigLookup) []byte {
	switch cmd.Kind {
	case Ping:
		return resp.SimpleString([]byte("PONG"))

	case Echo:
		return resp.SimpleString(cmd.EchoPayload)

	case Set:
		var ttl int64
		if cmd.SetTTLMS > 0 {
			ttl = cmd.SetTTLMS
		}
		ks.Set(cmd.SetKey, cmd.SetValue, msToDuration(ttl))
		return resp.SimpleString([]byte("OK"))

	case Get:
		value, ok := ks.Get(cmd.GetKey)
		if !ok {
			return resp.NullBulk()
		}
		return resp.BulkString(value)

	case ConfigGet:
		value, ok := lookupConfig(strings.ToLower(cmd.ConfigParam))
		if !ok {
			return resp.NullBulk()
		}
		return resp.BulkArray([][]byte{[]byte(cmd.ConfigParam), []byte(value)})

	case Keys:
		if cmd.KeysPattern != "*" {
			return resp.BulkArray(nil)
		}
		keys := ks.KeysStar()
		items := make([][]byte, len(keys))
		for i, k := range keys {
			items[i] = []byte(k)
		}
		return resp.BulkArray(items)

	default:
		return resp.ErrorReply("ERR unknown command")
	}
}
