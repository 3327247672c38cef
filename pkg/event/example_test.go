package event_test

import (
	"encoding/json"
	"fmt"

	"github.com/jittakal/kafeventsdk/pkg/event"
)

func ExampleNewBuilderV10() {
	e, err := event.NewBuilderV10().
		ID("aaa").
		Source("http://localhost").
		Type("example.demo").
		JSONData("application/json", map[string]string{"hello": "world"}).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}

	doc, _ := json.Marshal(e)
	fmt.Println(string(doc))
	// Output: {"specversion":"1.0","id":"aaa","type":"example.demo","source":"http://localhost","datacontenttype":"application/json","data":{"hello":"world"}}
}

func ExampleNewBuilderV10From() {
	v03, err := event.NewBuilderV03().
		ID("0001").
		Source("http://localhost").
		Type("example.demo").
		SchemaURL("http://localhost/schema").
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}

	v10, err := event.NewBuilderV10From(v03).Build()
	if err != nil {
		fmt.Println(err)
		return
	}

	schema, _ := v10.DataSchema()
	fmt.Println(v10.SpecVersion(), schema)
	// Output: 1.0 http://localhost/schema
}

func ExampleEvent_UnmarshalJSON() {
	doc := []byte(`{"specversion":"1.0","id":"aaa","source":"http://localhost","type":"example.demo","priority":5}`)

	var e event.Event
	if err := json.Unmarshal(doc, &e); err != nil {
		fmt.Println(err)
		return
	}

	priority, _ := e.Extension("priority")
	fmt.Println(e.ID(), priority)
	// Output: aaa 5
}
