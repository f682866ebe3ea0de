// Package spec holds the declarative documents that drive the framing engine.
//
// Two documents are consumed, both read-only:
//   - a protocol document (protocol.json) with one or more frame definitions:
//     header bytes, length rule, field table and checksum descriptor;
//   - a command set (commands.yaml) with encodable commands, their ordered
//     parameters and optional response/telemetry semantics.
//
// Both are decoded with gopkg.in/yaml.v3; JSON documents are valid YAML so a
// single decoder serves both formats. Shape checking is assumed to happen
// upstream. This package only decodes; value validation and compilation into
// an executable model live in package model, which reports problems as
// *MalformedError.
package spec
