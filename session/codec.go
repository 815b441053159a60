package session

import (
	"bytes"
	"encoding/json"
)

func marshalLine(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte('\n')
	return nil
}

func unmarshalLine(line []byte, v any) error {
	return json.Unmarshal(line, v)
}
