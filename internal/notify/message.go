package notify

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a rendered email.
type Message struct {
	To        string
	ToName    string
	FromEmail string
	FromName  string
	Subject   string
	HTML      string
	Text      string
}

// MIME returns the RFC 5322 encoding of m as multipart/alternative and the
// Message-ID it was stamped with.
func (m *Message) MIME() ([]byte, string) {
	domain := "localhost"
	if addr, err := mail.ParseAddress(m.FromEmail); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 {
			domain = addr.Address[at+1:]
		}
	}
	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), domain)
	boundary := fmt.Sprintf("=_%s", uuid.New().String()[:16])

	from := mail.Address{Name: m.FromName, Address: m.FromEmail}
	to := mail.Address{Name: m.ToName, Address: m.To}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", m.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s>\r\n", messageID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	buf.WriteString("\r\n")

	if m.Text != "" {
		writePart(&buf, boundary, "text/plain", m.Text)
	}
	writePart(&buf, boundary, "text/html", m.HTML)
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	return buf.Bytes(), messageID
}

func writePart(buf *bytes.Buffer, boundary, contentType, body string) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(buf)
	qp.Write([]byte(body))
	qp.Close()
	buf.WriteString("\r\n")
}
