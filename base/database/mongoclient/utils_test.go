package mongoclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ptr"
)

func TestMakeBsonM(t *testing.T) {
	req := require.New(t)

	type patchable struct {
		Status    *string    `bson:"status,omitempty"`
		Version   int64      `bson:"version,omitempty"`
		UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
		Skipped   string     `bson:"-"`
	}

	now := time.Now()

	cases := []struct {
		name  string
		input interface{}
		want  bson.M
	}{
		{
			name:  "all fields set",
			input: patchable{Status: ptr.String("settled"), Version: 3, UpdatedAt: &now},
			want:  bson.M{"status": "settled", "version": int64(3), "updatedAt": now},
		},
		{
			name:  "nil pointers and zero values dropped",
			input: patchable{Status: ptr.String("open")},
			want:  bson.M{"status": "open"},
		},
		{
			name:  "pointer receiver",
			input: &patchable{Version: 1},
			want:  bson.M{"version": int64(1)},
		},
		{
			name:  "skip tag honored",
			input: patchable{Skipped: "nope", Version: 2},
			want:  bson.M{"version": int64(2)},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := MakeBsonM(c.input)
			req.NoError(err)
			req.Equal(c.want, got)
		})
	}
}
