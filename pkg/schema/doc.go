// Package schema provides resttest.BodyType implementations.
//
// CUE validates a response body against a definition in a CUE schema:
//
//	schemas, err := schema.Load("testdata/api.cue")
//	out := schema.Must(schemas.Type("#DepartmentOut"))
//
// Of validates by decoding the body into a Go type and running its
// `validate` struct tags:
//
//	out := schema.Of[DepartmentOut]()
package schema
