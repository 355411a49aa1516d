package httprest

import (
	"bytes"
	"io"
	"time"
)

const fasthttpDefaultTimeout = 30 * time.Second

func nowFn() time.Time { return time.Now() }

func newReader(b []byte) io.Reader { return bytes.NewReader(b) }
