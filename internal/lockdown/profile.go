package lockdown

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"text/template"
)

// ProfileFilename is the download name of the generated client profile.
const ProfileFilename = "terminal-paradox.seb"

// ProfileContentType is the MIME type Safe Exam Browser registers for profiles.
const ProfileContentType = "application/seb"

var profileTmpl = template.Must(template.New("seb").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"
  "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>startURL</key>
  <string>{{.StartURL}}</string>
{{- if .HashedQuit}}
  <key>hashedQuitPassword</key>
  <string>{{.HashedQuit}}</string>
  <key>allowQuit</key>
  <true/>
{{- else}}
  <key>allowQuit</key>
  <false/>
{{- end}}
  <key>URLFilterEnable</key>
  <true/>
  <key>URLFilterEnableContentFilter</key>
  <false/>
  <key>URLFilterRules</key>
  <array>
{{- range .AllowedHosts}}
    <dict>
      <key>active</key><true/>
      <key>regex</key><false/>
      <key>action</key><integer>1</integer>
      <key>expression</key>
      <string>{{.}}</string>
    </dict>
{{- end}}
  </array>
  <key>enableBrowserWindowToolbar</key><false/>
  <key>browserWindowAllowReload</key><true/>
  <key>showReloadButton</key><false/>
  <key>showBackForwardNavigationButtons</key><false/>
  <key>blockPopUpWindows</key><true/>
  <key>newBrowserWindowByLinkPolicy</key><integer>2</integer>
  <key>showTaskBar</key><false/>
  <key>enableTouchExit</key><false/>
  <key>quitURLConfirm</key><true/>
  <key>browserContextMenuURL</key><false/>
  <key>zoomMode</key><integer>0</integer>
  <key>sebMode</key><integer>0</integer>
</dict>
</plist>
`))

type profileData struct {
	StartURL     string
	HashedQuit   string
	AllowedHosts []string
}

// GenerateConfig renders the lockdown client profile for appURL. The quit
// password, when set, is embedded as a hex SHA-256 digest.
func GenerateConfig(appURL, quitPassword string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(appURL), "/")

	host := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		host = u.Host
	}

	data := profileData{
		StartURL:     base + "/login",
		AllowedHosts: []string{host},
	}
	if quitPassword != "" {
		sum := sha256.Sum256([]byte(quitPassword))
		data.HashedQuit = hex.EncodeToString(sum[:])
	}

	var buf bytes.Buffer
	if err := profileTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
