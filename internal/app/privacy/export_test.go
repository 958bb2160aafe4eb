package privacy

import "io"

// SetKeyWriter swaps the key file writer until the returned func is called.
func SetKeyWriter(w func(io.Writer, []byte) (int, error)) (restore func()) {
	old := writeKey
	writeKey = w
	return func() { writeKey = old }
}
