package log

import (
	"fmt"

	"github.com/crewjam/rfc5424"
)

// KV builds a structured log field, mirroring ingest/log.KV.
func KV(name string, value interface{}) rfc5424.SDParam {
	switch v := value.(type) {
	case string:
		return rfc5424.SDParam{Name: name, Value: v}
	default:
		return rfc5424.SDParam{Name: name, Value: fmt.Sprintf("%v", value)}
	}
}

// KVErr builds a structured "error" field.
func KVErr(err error) rfc5424.SDParam {
	return KV("error", err)
}
