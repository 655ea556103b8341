package storage

import (
	"reflect"

	"github.com/Sternrassler/swapi-loader/pkg/swapi"
)

func rowTags() []string {
	t := reflect.TypeOf(swapi.Row{})
	tags := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("db"); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
