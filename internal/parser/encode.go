package parser

import (
	"strconv"
	"strings"

	"github.com/glefebvre/iptvcore/internal/models"
)

// Encode renders channels as M3U text that Parse reads back.
// Quotes in attribute values are dropped since the format has no escaping.
func Encode(channels []models.Channel) string {
	var b strings.Builder
	b.WriteString(headerPrefix)
	b.WriteByte('\n')

	for _, ch := range channels {
		b.WriteString(extinfPrefix)
		if ch.Duration != nil {
			b.WriteString(strconv.FormatFloat(*ch.Duration, 'f', -1, 64))
		} else {
			b.WriteString("-1")
		}
		writeAttr(&b, attrLogo, ch.Logo)
		writeAttr(&b, attrGroup, ch.Group)
		b.WriteByte(',')
		b.WriteString(ch.Name)
		b.WriteByte('\n')
		b.WriteString(ch.URL)
		b.WriteByte('\n')
	}

	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(strings.ReplaceAll(value, `"`, ""))
	b.WriteByte('"')
}
