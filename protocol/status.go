package protocol

import (
	"github.com/tidwall/sjson"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"

	"github.com/luma/lodestone/codec"
)

// VersionName is reported in the server list.
const VersionName = "lodestone 1.8"

// StatusJSON renders the server list entry:
//
//	{"version":{"name","protocol"},"players":{"online","max"},"description":{"text"},"favicon"}
//
// favicon is omitted when info carries no image.
func StatusJSON(info StatusInfo) (string, error) {
	doc := `{}`

	fields := []struct {
		path  string
		value interface{}
	}{
		{"version.name", VersionName},
		{"version.protocol", ProtocolVersion},
		{"players.online", info.Online},
		{"players.max", info.Max},
		{"description.text", info.Description},
	}

	if len(info.Favicon) > 0 {
		fields = append(fields, struct {
			path  string
			value interface{}
		}{"favicon", dataurl.New(info.Favicon, "image/png").String()})
	}

	var err error
	for _, f := range fields {
		if doc, err = sjson.Set(doc, f.path, f.value); err != nil {
			return "", err
		}
	}

	return doc, nil
}

func decodeStatusRequest(c *Conn, _ *fieldReader) error {
	doc, err := StatusJSON(c.handler.Status(c))
	if err != nil {
		c.log.Warn("Failed to build status response", zap.Error(err))
		return nil
	}

	c.reply(c.WritePacket(outStatusResponse, func(w *codec.Writer) error {
		w.WriteString(doc)
		return nil
	}))

	return nil
}

func decodeStatusPing(c *Conn, r *fieldReader) error {
	ts := r.i64()
	if r.err != nil {
		return r.err
	}

	c.reply(c.WritePacket(outStatusPong, func(w *codec.Writer) error {
		w.WriteInt64(ts)
		return nil
	}))

	return nil
}
