// Package encode builds framed byte sequences from commands.
//
// A request is validated completely before any byte is written: unknown
// parameters, missing parameters without a default and values outside the
// declared range or type are all rejected with a *ParamError. Parameters are
// encoded in declaration order. Framing places the header at offset zero,
// the command id in the model's command field, the payload at its payload
// offset, then writes the length field and seals the checksum.
package encode

import (
	"fmt"
	"sort"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/errors"
	"github.com/lj123as/Device-Verification-Kit/internal/model"
)

// Options controls a single encode.
type Options struct {
	// Framed wraps the payload in a complete frame. When false only the
	// parameter bytes are returned.
	Framed bool
}

// Encoder encodes commands against one frame model.
type Encoder struct {
	model    *model.Model
	commands *model.CommandTable
}

// New returns an encoder for m. Commands come from table, or from
// m.Commands when table is nil.
func New(m *model.Model, table *model.CommandTable) (*Encoder, error) {
	if table == nil {
		table = m.Commands
	}
	if table == nil {
		return nil, fmt.Errorf("encode: frame %q has no command table", m.Name)
	}
	return &Encoder{model: m, commands: table}, nil
}

// Commands returns the encoder's command table.
func (e *Encoder) Commands() *model.CommandTable { return e.commands }

// Encode looks a command up by name or id ("set_temp", "0x10", "16") and
// encodes it. Rejections are wrapped in a UserFriendlyError; errors.Is and
// errors.As still reach the underlying *ParamError.
func (e *Encoder) Encode(selector string, params map[string]any, opts Options) ([]byte, error) {
	cmd, err := e.commands.Lookup(selector)
	if err != nil {
		return nil, err
	}
	out, err := e.EncodeCommand(cmd, params, opts)
	if err != nil {
		return nil, errors.WrapEncodeError(err, cmd.Name)
	}
	return out, nil
}

// EncodeCommand encodes cmd with params.
func (e *Encoder) EncodeCommand(cmd *model.Command, params map[string]any, opts Options) ([]byte, error) {
	payload, err := Payload(cmd, params)
	if err != nil {
		return nil, err
	}
	if !opts.Framed {
		return payload, nil
	}
	return e.Frame(cmd.ID, payload)
}

// Payload validates params against cmd and encodes them in declaration
// order.
func Payload(cmd *model.Command, params map[string]any) ([]byte, error) {
	unknown := make([]string, 0)
	for name := range params {
		if _, ok := cmd.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ParamError{Kind: ErrUnknownParam, Command: cmd.Name, Param: unknown[0], Value: params[unknown[0]]}
	}

	values := make([]codec.Value, len(cmd.Params))
	for i, p := range cmd.Params {
		raw, ok := params[p.Name]
		if !ok {
			if p.Default == nil {
				return nil, &ParamError{Kind: ErrMissingRequiredParam, Command: cmd.Name, Param: p.Name}
			}
			values[i] = *p.Default
			continue
		}
		v, err := codec.Coerce(p.Type, raw)
		if err != nil {
			return nil, &ParamError{Kind: ErrParamOutOfRange, Command: cmd.Name, Param: p.Name, Value: raw, Err: err}
		}
		if !p.InRange(v) {
			return nil, &ParamError{Kind: ErrParamOutOfRange, Command: cmd.Name, Param: p.Name, Value: raw,
				Err: fmt.Errorf("%v outside %s", raw, rangeString(p))}
		}
		values[i] = v
	}

	var out []byte
	for i, p := range cmd.Params {
		var err error
		if out, err = codec.Append(out, p.Type, values[i]); err != nil {
			return nil, &ParamError{Kind: ErrParamOutOfRange, Command: cmd.Name, Param: p.Name, Value: params[p.Name], Err: err}
		}
	}
	return out, nil
}

// Frame wraps payload in a complete frame carrying command id.
func (e *Encoder) Frame(id uint64, payload []byte) ([]byte, error) {
	m := e.model
	lo := m.PayloadOffset
	hi := lo + len(payload)

	total, err := frameLen(m, hi)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, total)
	copy(buf, m.Header)

	if m.Length.Mode != model.LengthFixed {
		body := total - m.Length.Overhead
		if m.Length.Mode == model.LengthCounted {
			body /= m.Length.Unit
		}
		v, err := codec.Coerce(m.Length.Type, int64(body))
		if err != nil {
			return nil, fmt.Errorf("%w: length %d: %v", ErrLayout, body, err)
		}
		off := m.Length.Offset
		if err := codec.Put(buf[off:off+m.Length.Type.Width()], m.Length.Type, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLayout, err)
		}
	}

	if m.CommandField >= 0 {
		f := m.Fields[m.CommandField]
		v, err := codec.Coerce(f.Type, id)
		if err != nil {
			return nil, fmt.Errorf("%w: command id 0x%X in %q: %v", ErrLayout, id, f.Name, err)
		}
		if err := codec.Put(buf[f.Offset:f.Offset+f.Length], f.Type, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLayout, err)
		}
	}

	copy(buf[lo:hi], payload)

	if m.Checksum != nil {
		if err := m.Checksum.Seal(buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLayout, err)
		}
	}
	return buf, nil
}

// frameLen computes the total frame length for a payload ending at end.
func frameLen(m *model.Model, end int) (int, error) {
	trailing := 0
	if m.Checksum != nil {
		trailing = m.Checksum.Trailing()
	}
	floor := m.MinFrameLen()
	if m.CommandField >= 0 {
		f := m.Fields[m.CommandField]
		floor = max(floor, f.Offset+f.Length)
	}

	var total int
	switch m.Length.Mode {
	case model.LengthFixed:
		total = m.Length.Fixed
		if end+trailing > total || floor > total {
			return 0, fmt.Errorf("%w: payload ends at %d, fixed %d-byte frame leaves room up to %d",
				ErrLayout, end, total, total-trailing)
		}
	default:
		total = max(end+trailing, floor, m.Length.Overhead)
		if m.Length.Mode == model.LengthCounted {
			if body := total - m.Length.Overhead; body%m.Length.Unit != 0 {
				return 0, fmt.Errorf("%w: %d body bytes are not a multiple of %d-byte units",
					ErrLayout, body, m.Length.Unit)
			}
		}
	}

	if m.Checksum != nil && m.Checksum.StoreAt >= 0 {
		at, w := m.Checksum.StoreAt, m.Checksum.Width()
		if at < end && m.PayloadOffset < at+w && end > m.PayloadOffset {
			return 0, fmt.Errorf("%w: payload [%d,%d) overlaps checksum at %d", ErrLayout, m.PayloadOffset, end, at)
		}
	}
	return total, nil
}

func rangeString(p model.Param) string {
	lo, hi := "-inf", "+inf"
	if p.Min != nil {
		lo = fmt.Sprintf("%g", *p.Min)
	}
	if p.Max != nil {
		hi = fmt.Sprintf("%g", *p.Max)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
