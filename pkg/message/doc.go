// Package message defines the content-mode codec protocol between the
// event model and transport bindings.
//
// A transport carries an event in one of two modes. In structured mode the
// whole event travels as one JSON document; in binary mode each context
// attribute maps to a transport-native metadata field (a header, a record
// property) and the payload travels as raw bytes. This package decouples
// both directions from any concrete transport type through two narrow
// roles:
//
// Outbound, a binding implements BinaryWriter or StructuredWriter over its
// native message type and hands it to WriteBinary or WriteStructured; the
// core pushes one call per present attribute plus one terminating call for
// the payload.
//
// Inbound, a binding feeds attribute name/value pairs, in whatever order
// the transport yields them, into an Accumulator and finalizes with Event,
// which applies the same validation as a builder's Build.
//
// Whether an incoming message is structured or binary is the binding's
// decision, typically made on its content-type field; bindings report a
// mode the message does not carry with ErrWrongEncoding.
package message
