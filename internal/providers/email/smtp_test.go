package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSMTPSendBuildsMultipartWithAttachments(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	p := NewSMTP(Config{Host: "smtp.example.com", Port: 587, From: "Menus Ready <hello@menusready.com>"})
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := p.Send(context.Background(), Message{
		To:       []string{"owner@harbordiner.com"},
		Subject:  "Your menu is live",
		HTMLBody: "<p>Welcome aboard</p>",
		Attachments: []Attachment{
			{Filename: "harbor-diner-qr-code.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
			{Filename: "harbor-diner-menu.txt", ContentType: "text/plain", Data: []byte("HARBOR DINER\n")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, "hello@menusready.com", gotFrom)
	require.Equal(t, []string{"owner@harbordiner.com"}, gotTo)

	parsed, err := mail.ReadMessage(bytes.NewReader(gotMsg))
	require.NoError(t, err)
	require.Equal(t, "Your menu is live", parsed.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	var filenames []string
	var png []byte
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if name := part.FileName(); name != "" {
			filenames = append(filenames, name)
			raw, err := io.ReadAll(part)
			require.NoError(t, err)
			if strings.HasSuffix(name, ".png") {
				png, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(string(raw), "\r\n", ""))
				require.NoError(t, err)
			}
		}
	}
	require.Equal(t, []string{"harbor-diner-qr-code.png", "harbor-diner-menu.txt"}, filenames)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png)
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	p := NewSMTP(Config{From: "hello@menusready.com"})
	require.Error(t, p.Send(context.Background(), Message{Subject: "x"}))
}
