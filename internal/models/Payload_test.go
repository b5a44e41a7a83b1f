//go:build test

package models

import (
	"testing"

	"github.com/forceu/uploadrelay/internal/test"
)

func validPayload() Payload {
	return Payload{
		SessionId: "abcd1234",
		Service:   ServicePixeldrain,
		Files:     []FileRef{{Kind: KindDocument, FileId: "f1", FileName: "one.bin", FileSize: 3}},
		Owner:     "42",
		ChatId:    -100,
		MessageId: 7,
	}
}

func TestPayloadRoundtrip(t *testing.T) {
	jsonData, err := validPayload().ToJson()
	test.IsNil(t, err)
	parsed, err := ParsePayload(jsonData, "", "")
	test.IsNil(t, err)
	test.IsEqualString(t, parsed.SessionId, "abcd1234")
	test.IsEqualString(t, string(parsed.Service), "pixeldrain")
	test.IsEqualInt(t, len(parsed.Files), 1)
	test.IsEqualString(t, parsed.Files[0].FileName, "one.bin")
	test.IsEqualInt64(t, parsed.ChatId, -100)
	test.IsEqualInt(t, parsed.MessageId, 7)

	parsed, err = ParsePayload(jsonData, "override", "CATBOX")
	test.IsNil(t, err)
	test.IsEqualString(t, parsed.SessionId, "override")
	test.IsEqualString(t, string(parsed.Service), "catbox")
}

func TestParsePayloadInvalid(t *testing.T) {
	_, err := ParsePayload("", "", "")
	test.IsNotNil(t, err)
	_, err = ParsePayload("{invalid", "", "")
	test.IsNotNil(t, err)
	_, err = ParsePayload(`{"session_id":"a","service":"pixeldrain","files":[{"type":"document","file_id":"x"}],"message_id":1}`, "", "")
	test.IsNotNil(t, err)
	_, err = ParsePayload(`{"session_id":"a","service":"pixeldrain","files":[{"type":"document","file_id":"x"}],"chat_id":1}`, "", "")
	test.IsNotNil(t, err)
	_, err = ParsePayload(`{"session_id":"a","service":"pixeldrain","files":[],"chat_id":1,"message_id":1}`, "", "")
	test.IsNotNil(t, err)
	parsed, err := ParsePayload(`{"session_id":"a","service":"pixeldrain","files":[{"type":"document","file_id":"x"}],"chat_id":1,"message_id":1}`, "", "invalid")
	test.IsNotNil(t, err)
	test.IsEqualInt64(t, parsed.ChatId, 1)
	test.IsEqualInt(t, parsed.MessageId, 1)

	payload := validPayload()
	payload.Files = append(payload.Files, FileRef{Kind: KindLink})
	test.IsNotNil(t, payload.Validate())
	payload = validPayload()
	payload.SessionId = ""
	test.IsNotNil(t, payload.Validate())
}
