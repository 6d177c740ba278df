package mongoclient

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// MakeBsonM flattens a patchable struct into a bson.M, honoring bson tags.
// Nil pointers and zero values with omitempty are dropped so callers can
// build partial updates from sparse structs.
func MakeBsonM(patchable interface{}) (bson.M, error) {
	val := reflect.ValueOf(patchable)
	if val.Kind() == reflect.Ptr && val.Elem().Kind() == reflect.Struct {
		val = val.Elem()
	}

	bsonM := bson.M{}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)

		tag, err := bsoncodec.DefaultStructTagParser(val.Type().Field(i))
		if err != nil {
			return nil, err
		}

		switch {
		case tag.Skip:
		case !field.CanInterface():
		case tag.OmitEmpty && field.IsZero():
		case field.Kind() == reflect.Ptr && !field.IsNil():
			bsonM[tag.Name] = reflect.Indirect(field).Interface()
		case !field.IsZero():
			bsonM[tag.Name] = field.Interface()
		}
	}

	return bsonM, nil
}
