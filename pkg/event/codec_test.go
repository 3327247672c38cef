package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMarshal_MinimalV10KeySet(t *testing.T) {
	e, err := NewBuilderV10().
		ID("aaa").
		Source("http://localhost").
		Type("example.demo").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	doc, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var keys map[string]any
	if err := json.Unmarshal(doc, &keys); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	want := map[string]any{
		"specversion": "1.0",
		"id":          "aaa",
		"source":      "http://localhost",
		"type":        "example.demo",
	}
	if len(keys) != len(want) {
		t.Errorf("document has keys %v, want exactly %v", keys, want)
	}
	for k, v := range want {
		if keys[k] != v {
			t.Errorf("key %q = %v, want %v", k, keys[k], v)
		}
	}
}

func TestMarshal_JSONDataUnderDataKey(t *testing.T) {
	e, err := NewBuilderV10().
		ID("aaa").
		Source("http://localhost").
		Type("example.demo").
		JSONData("application/json", map[string]string{"hello": "world"}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	doc, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if string(fields["datacontenttype"]) != `"application/json"` {
		t.Errorf("datacontenttype = %s", fields["datacontenttype"])
	}
	var data map[string]string
	if err := json.Unmarshal(fields["data"], &data); err != nil {
		t.Fatalf("data key does not hold a JSON object: %v", err)
	}
	if data["hello"] != "world" {
		t.Errorf("data = %v", data)
	}
	if _, ok := fields["data_base64"]; ok {
		t.Error("data_base64 emitted for a JSON payload")
	}

	var decoded Event
	if err := json.Unmarshal(doc, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Equal(e) {
		t.Error("decoded event differs from original")
	}
}

func TestMarshal_BinaryData(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	t.Run("v1.0 uses data_base64", func(t *testing.T) {
		e, err := NewBuilderV10().
			ID("aaa").
			Source("http://localhost").
			Type("example.demo").
			BinaryData("application/octet-stream", payload).
			Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		doc, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(doc, &fields); err != nil {
			t.Fatal(err)
		}
		if string(fields["data_base64"]) != `"3q2+7w=="` {
			t.Errorf("data_base64 = %s, want %q", fields["data_base64"], "3q2+7w==")
		}
		if _, ok := fields["data"]; ok {
			t.Error("data emitted alongside data_base64")
		}
	})

	t.Run("v0.3 uses data with datacontentencoding", func(t *testing.T) {
		e, err := NewBuilderV03().
			ID("aaa").
			Source("http://localhost").
			Type("example.demo").
			BinaryData("application/octet-stream", payload).
			Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		doc, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(doc, &fields); err != nil {
			t.Fatal(err)
		}
		if string(fields["data"]) != `"3q2+7w=="` {
			t.Errorf("data = %s, want base64 string", fields["data"])
		}
		if string(fields["datacontentencoding"]) != `"base64"` {
			t.Errorf("datacontentencoding = %s, want %q", fields["datacontentencoding"], "base64")
		}
		if _, ok := fields["data_base64"]; ok {
			t.Error("data_base64 emitted on a 0.3 document")
		}
	})
}

func TestRoundTrip(t *testing.T) {
	at := time.Date(2020, 3, 16, 11, 50, 0, 0, time.UTC)

	v10 := func() *BuilderV10 {
		return NewBuilderV10().
			ID("0001").
			Source("http://localhost").
			Type("test_event.test_application").
			Subject("cloudevents-sdk").
			Time(at).
			Extension("stringex", "val").
			Extension("boolex", true).
			Extension("intex", 10)
	}
	v03 := func() *BuilderV03 {
		return NewBuilderV03().
			ID("0001").
			Source("http://localhost").
			Type("test_event.test_application").
			Subject("cloudevents-sdk").
			Time(at).
			Extension("stringex", "val").
			Extension("boolex", true).
			Extension("intex", 10)
	}

	tests := []struct {
		name  string
		build func() (*Event, error)
	}{
		{"v1.0 no data", func() (*Event, error) { return v10().Build() }},
		{"v1.0 json data", func() (*Event, error) {
			return v10().JSONData("application/json", map[string]string{"hello": "world"}).Build()
		}},
		{"v1.0 binary data", func() (*Event, error) {
			return v10().BinaryData("application/octet-stream", []byte{1, 2, 3}).Build()
		}},
		{"v1.0 dataschema", func() (*Event, error) {
			return v10().DataSchema("http://localhost/schema").Build()
		}},
		{"v0.3 no data", func() (*Event, error) { return v03().Build() }},
		{"v0.3 json data", func() (*Event, error) {
			return v03().JSONData("application/json", map[string]string{"hello": "world"}).Build()
		}},
		{"v0.3 binary data", func() (*Event, error) {
			return v03().BinaryData("application/octet-stream", []byte{1, 2, 3}).Build()
		}},
		{"v0.3 schemaurl", func() (*Event, error) {
			return v03().SchemaURL("http://localhost/schema").Build()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			doc, err := json.Marshal(e)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var decoded Event
			if err := json.Unmarshal(doc, &decoded); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", doc, err)
			}
			if !decoded.Equal(e) {
				t.Errorf("round trip changed the event\n doc: %s", doc)
			}
		})
	}
}

func TestUnmarshal_UnsupportedSpecVersion(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"9.9","id":"a","source":"/s","type":"t"}`), &e)
	if !errors.Is(err, ErrUnsupportedSpecVersion) {
		t.Errorf("Unmarshal() error = %v, want ErrUnsupportedSpecVersion", err)
	}
}

func TestUnmarshal_MissingSpecVersion(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"id":"a","source":"/s","type":"t"}`), &e)
	if !errors.Is(err, ErrUnsupportedSpecVersion) {
		t.Errorf("Unmarshal() error = %v, want ErrUnsupportedSpecVersion", err)
	}
}

func TestUnmarshal_BothDataKeys(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"1.0","id":"a","source":"/s","type":"t","data":{},"data_base64":"AA=="}`), &e)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidPayload", err)
	}
}

func TestUnmarshal_InvalidBase64(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"1.0","id":"a","source":"/s","type":"t","datacontenttype":"application/octet-stream","data_base64":"!!!"}`), &e)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidPayload", err)
	}
}

func TestUnmarshal_NonObjectDocument(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`[1,2,3]`), &e)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidPayload", err)
	}
}

func TestUnmarshal_ExtensionTypes(t *testing.T) {
	var e Event
	doc := `{"specversion":"1.0","id":"a","source":"/s","type":"t","intex":10,"boolex":true,"stringex":"val","nullex":null}`
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if v, ok := e.Extension("intex"); !ok || v != int64(10) {
		t.Errorf("intex = %v (%T), want int64(10)", v, v)
	}
	if v, ok := e.Extension("boolex"); !ok || v != true {
		t.Errorf("boolex = %v, want true", v)
	}
	if v, ok := e.Extension("stringex"); !ok || v != "val" {
		t.Errorf("stringex = %v, want %q", v, "val")
	}
	if _, ok := e.Extension("nullex"); ok {
		t.Error("null-valued key decoded as extension")
	}
}

func TestUnmarshal_FractionalExtensionRejected(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"1.0","id":"a","source":"/s","type":"t","ratio":1.5}`), &e)
	if !errors.Is(err, ErrInvalidExtensionValue) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidExtensionValue", err)
	}
}

func TestUnmarshal_ExtensionIllegalKey(t *testing.T) {
	// data_base64 is not an attribute of the 0.3 revision and its name is
	// outside the extension charset.
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"0.3","id":"a","source":"/s","type":"t","data_base64":"AA=="}`), &e)
	if !errors.Is(err, ErrInvalidExtensionName) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidExtensionName", err)
	}
}

func TestUnmarshal_V03Base64Data(t *testing.T) {
	var e Event
	doc := `{"specversion":"0.3","id":"a","source":"/s","type":"t","datacontenttype":"application/octet-stream","datacontentencoding":"base64","data":"AQID"}`
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	b, ok := e.Data().Binary()
	if !ok {
		t.Fatalf("Data().Kind() = %v, want binary", e.Data().Kind())
	}
	if string(b) != "\x01\x02\x03" {
		t.Errorf("payload = %v, want [1 2 3]", b)
	}
	if enc, ok := e.DataContentEncoding(); !ok || enc != "base64" {
		t.Errorf("DataContentEncoding() = %q, %v, want base64 on a binary payload", enc, ok)
	}
}

func TestRoundTrip_V03BinaryEncoding(t *testing.T) {
	original, err := NewBuilderV03().
		ID("0001").
		Source("http://localhost").
		Type("test_event.test_application").
		DataContentEncoding("base64").
		BinaryData("application/octet-stream", []byte{0xde, 0xad, 0xbe, 0xef}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	doc, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(doc, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !original.Equal(&decoded) {
		t.Errorf("round trip changed the event: got %+v, want %+v", &decoded, original)
	}
}

func TestRoundTrip_V03JSONDataRejectsMarker(t *testing.T) {
	// A JSON payload never carries the base64 marker; the combination is
	// rejected when building, so no document with this shape is produced.
	_, err := NewBuilderV03().
		ID("0001").
		Source("http://localhost").
		Type("test_event.test_application").
		DataContentEncoding("base64").
		JSONData("application/json", map[string]string{"hello": "world"}).
		Build()
	var aerr *AttributeError
	if !errors.As(err, &aerr) || aerr.Name != "datacontentencoding" {
		t.Errorf("Build() error = %v, want AttributeError for datacontentencoding", err)
	}
}

func TestUnmarshal_V03UnknownEncoding(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"specversion":"0.3","id":"a","source":"/s","type":"t","datacontentencoding":"base32","data":"x"}`), &e)
	var aerr *AttributeError
	if !errors.As(err, &aerr) || aerr.Name != "datacontentencoding" {
		t.Errorf("Unmarshal() error = %v, want AttributeError for datacontentencoding", err)
	}
}

func TestUnmarshal_TimeWithFraction(t *testing.T) {
	var e Event
	doc := `{"specversion":"1.0","id":"a","source":"/s","type":"t","time":"2020-03-16T11:50:00.123456789Z"}`
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	got, ok := e.Time()
	if !ok {
		t.Fatal("Time() absent")
	}
	want := time.Date(2020, 3, 16, 11, 50, 0, 123456789, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func BenchmarkMarshal(b *testing.B) {
	e, err := NewBuilderV10().
		ID("0001").
		Source("http://localhost").
		Type("test_event.test_application").
		JSONData("application/json", map[string]string{"hello": "world"}).
		Extension("intex", 10).
		Build()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := json.Marshal(e); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	doc := []byte(`{"specversion":"1.0","id":"0001","type":"test_event.test_application","source":"http://localhost","datacontenttype":"application/json","data":{"hello":"world"},"intex":10}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var e Event
		if err := json.Unmarshal(doc, &e); err != nil {
			b.Fatal(err)
		}
	}
}
