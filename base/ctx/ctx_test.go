package ctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithValue(t *testing.T) {
	c := Background()
	c = WithValue(c, "requestID", "abc-123")
	assert.Equal(t, "abc-123", c.Value("requestID"))
}

func TestWithTimeout(t *testing.T) {
	c, cancel := WithTimeout(Background(), time.Millisecond)
	defer cancel()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
}
