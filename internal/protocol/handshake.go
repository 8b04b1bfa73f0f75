package protocol

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// MaxNameLength bounds player names in runes.
const MaxNameLength = 16

// DefaultPlayerName replaces an empty name.
const DefaultPlayerName = "player"

// Handshake is the server's greeting: the player's tank id and the arena size.
type Handshake struct {
	PlayerID int
	Size     int
}

// EncodeHandshake returns "<id>\n<size>\n" followed by one line per wall.
func EncodeHandshake(id, size int, walls []world.Wall) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(id))
	buf.WriteByte('\n')
	buf.WriteString(strconv.Itoa(size))
	buf.WriteByte('\n')
	for i := range walls {
		line, err := EncodeEntity(walls[i])
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// ParseHandshake reads the two integer lines at the start of buf. ok is false
// until both lines are complete; consumed covers only those two lines so the
// wall lines can be handed to Consume.
func ParseHandshake(buf []byte) (h Handshake, consumed int, ok bool, err error) {
	first := bytes.IndexByte(buf, '\n')
	if first < 0 {
		return Handshake{}, 0, false, nil
	}
	second := bytes.IndexByte(buf[first+1:], '\n')
	if second < 0 {
		return Handshake{}, 0, false, nil
	}
	second += first + 1

	idLine := bytes.TrimSpace(buf[:first])
	sizeLine := bytes.TrimSpace(buf[first+1 : second])

	id, err := strconv.Atoi(string(idLine))
	if err != nil {
		return Handshake{}, 0, false, malformed(idLine, "player id is not an integer", err)
	}
	size, err := strconv.Atoi(string(sizeLine))
	if err != nil {
		return Handshake{}, 0, false, malformed(sizeLine, "arena size is not an integer", err)
	}
	return Handshake{PlayerID: id, Size: size}, second + 1, true, nil
}

// ParsePlayerName extracts the player name a client sends right after
// connecting. The name ends at the first newline or, if there is none, at the
// end of buf. consumed is the byte count to discard.
func ParsePlayerName(buf []byte) (name string, consumed int) {
	end := bytes.IndexByte(buf, '\n')
	if end < 0 {
		consumed = len(buf)
		end = len(buf)
	} else {
		consumed = end + 1
	}
	return SanitizeName(string(buf[:end])), consumed
}

// SanitizeName trims whitespace, drops control characters and invalid UTF-8,
// and truncates to MaxNameLength runes.
func SanitizeName(raw string) string {
	raw = strings.ToValidUTF8(raw, "")
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(raw) {
		if r < 0x20 || r == 0x7f {
			continue
		}
		if n == MaxNameLength {
			break
		}
		b.WriteRune(r)
		n++
	}
	name := strings.TrimSpace(b.String())
	if name == "" || !utf8.ValidString(name) {
		return DefaultPlayerName
	}
	return name
}
