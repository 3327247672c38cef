// Package event implements the CloudEvents event envelope: a versioned,
// self-describing set of context attributes, an open extension map and an
// optional payload.
//
// Two specification revisions are supported, 0.3 and 1.0. They disagree on
// the optional attribute set (0.3 has schemaurl and datacontentencoding,
// 1.0 has dataschema and data_base64), so an Event is a tagged union: its
// attributes are either AttributesV03 or AttributesV10 and the revision tag
// is immutable after construction.
//
// # Building events
//
// Events are created through a per-revision builder. Setters chain and
// validate eagerly; every violation is reported together by Build:
//
//	e, err := event.NewBuilderV10().
//	    ID("aaa").
//	    Source("http://localhost").
//	    Type("example.demo").
//	    JSONData("application/json", map[string]string{"hello": "world"}).
//	    Build()
//
// When the id is never set, Build generates one with the builder's id
// generator (UUID v4 by default). A builder seeded from an existing event
// rebuilds it, possibly under the other revision:
//
//	v03, err := event.NewBuilderV03From(e).Build()
//
// # Wire format
//
// Event marshals to and from the CloudEvents JSON format through
// encoding/json. Extensions flatten to top-level keys, binary payloads
// travel base64-encoded under data_base64 (1.0) or under data with
// datacontentencoding set (0.3):
//
//	doc, err := json.Marshal(e)
//
//	var decoded event.Event
//	err = json.Unmarshal(doc, &decoded)
//
// The binary content mode, where attributes map to transport metadata and
// the payload travels separately, lives in the message package.
//
// Events are immutable and safe for concurrent reads. Builders are not;
// each call site owns its own.
package event
