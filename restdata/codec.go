// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"io"
	"mime"
	"reflect"

	"github.com/ugorji/go/codec"
)

// jsonHandle returns the codec handle used for every JSON body.
// Untyped objects decode as map[string]interface{} so handlers see
// the same shapes encoding/json would give them.
func jsonHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// IsJSON reports whether a Content-Type: header names a JSON body.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/json", JSONMediaType:
		return true
	}
	return false
}

// Decode tries to decode a JSON object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrBadRequest{Err: err}
	}
	if !IsJSON(mediaType) {
		return ErrUnsupportedMediaType{Type: mediaType}
	}

	decoder := codec.NewDecoder(r, jsonHandle())
	err = decoder.Decode(out)
	if err != nil {
		return ErrBadRequest{Err: err}
	}
	return nil
}

// DecodeBytes decodes a JSON byte slice into out, which must be of
// pointer type.
func DecodeBytes(data []byte, out interface{}) error {
	return Decode(JSONMediaType, bytes.NewReader(data), out)
}

// Encode writes the JSON serialization of in to w.
func Encode(w io.Writer, in interface{}) error {
	encoder := codec.NewEncoder(w, jsonHandle())
	return encoder.Encode(in)
}

// EncodeBytes returns the JSON serialization of in.
func EncodeBytes(in interface{}) ([]byte, error) {
	var out []byte
	encoder := codec.NewEncoderBytes(&out, jsonHandle())
	err := encoder.Encode(in)
	return out, err
}
