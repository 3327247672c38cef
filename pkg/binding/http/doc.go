// Package http binds events to net/http requests and responses.
//
// Binary mode maps attributes and extensions to headers under the ce-
// prefix, carries datacontenttype in Content-Type and the payload as the
// body. Structured mode sends the whole JSON document as the body with
// Content-Type application/cloudevents+json.
package http
