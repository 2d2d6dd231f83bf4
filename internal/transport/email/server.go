// Package email submits batches over SMTP as multipart text + HTML mail.
package email

import (
	"strconv"
	"strings"
)

// Security is how the SMTP session is protected.
type Security int

const (
	// StartTLS upgrades a plain connection when the server offers it.
	StartTLS Security = iota
	// ImplicitTLS dials straight into TLS (port 465).
	ImplicitTLS
)

// Server is a resolved SMTP submission endpoint.
type Server struct {
	Host     string
	Port     int
	Security Security
}

func (s Server) Addr() string { return s.Host + ":" + strconv.Itoa(s.Port) }

// knownServers maps sender domains to their providers' submission servers.
var knownServers = map[string]Server{
	"gmail.com":   {"smtp.gmail.com", 587, StartTLS},
	"qq.com":      {"smtp.qq.com", 465, ImplicitTLS},
	"outlook.com": {"smtp-mail.outlook.com", 587, StartTLS},
	"hotmail.com": {"smtp-mail.outlook.com", 587, StartTLS},
	"live.com":    {"smtp-mail.outlook.com", 587, StartTLS},
	"163.com":     {"smtp.163.com", 465, ImplicitTLS},
	"126.com":     {"smtp.126.com", 465, ImplicitTLS},
	"sina.com":    {"smtp.sina.com", 465, ImplicitTLS},
	"sohu.com":    {"smtp.sohu.com", 465, ImplicitTLS},
	"189.cn":      {"smtp.189.cn", 465, ImplicitTLS},
	"aliyun.com":  {"smtp.aliyun.com", 465, ImplicitTLS},
}

// ResolveServer picks the SMTP server for from. An explicit host and port
// win; otherwise the sender's domain is looked up, falling back to
// smtp.<domain>:587 with STARTTLS.
func ResolveServer(from, host string, port int) Server {
	if h := strings.TrimSpace(host); h != "" && port > 0 {
		sec := StartTLS
		if port == 465 {
			sec = ImplicitTLS
		}
		return Server{Host: h, Port: port, Security: sec}
	}
	domain := strings.ToLower(from)
	if i := strings.LastIndex(domain, "@"); i >= 0 {
		domain = domain[i+1:]
	}
	if s, ok := knownServers[domain]; ok {
		return s
	}
	return Server{Host: "smtp." + domain, Port: 587, Security: StartTLS}
}
