package messenger

import (
	"github.com/forceu/uploadrelay/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AttachmentFromMessage returns a reference to the file attached to msg. Documents are preferred over
// videos, audio and photos. For photos the largest size is used
func AttachmentFromMessage(msg *tgbotapi.Message) (models.FileRef, bool) {
	if msg == nil {
		return models.FileRef{}, false
	}
	result := models.FileRef{MessageId: msg.MessageID}
	if msg.Chat != nil {
		result.Chat = models.ChatRef{Id: msg.Chat.ID}
	}
	switch {
	case msg.Document != nil:
		result.Kind = models.KindDocument
		result.FileId = msg.Document.FileID
		result.FileName = msg.Document.FileName
		result.FileSize = int64(msg.Document.FileSize)
		if result.FileName == "" {
			result.FileName = "document_" + msg.Document.FileUniqueID
		}
	case msg.Video != nil:
		result.Kind = models.KindVideo
		result.FileId = msg.Video.FileID
		result.FileName = msg.Video.FileName
		result.FileSize = int64(msg.Video.FileSize)
		if result.FileName == "" {
			result.FileName = "video_" + msg.Video.FileUniqueID + ".mp4"
		}
	case msg.Audio != nil:
		result.Kind = models.KindAudio
		result.FileId = msg.Audio.FileID
		result.FileName = msg.Audio.FileName
		result.FileSize = int64(msg.Audio.FileSize)
		if result.FileName == "" {
			result.FileName = "audio_" + msg.Audio.FileUniqueID + ".mp3"
		}
	case len(msg.Photo) > 0:
		largest := msg.Photo[0]
		for _, photo := range msg.Photo[1:] {
			if photo.Width*photo.Height > largest.Width*largest.Height {
				largest = photo
			}
		}
		result.Kind = models.KindPhoto
		result.FileId = largest.FileID
		result.FileName = "photo_" + largest.FileUniqueID + ".jpg"
		result.FileSize = int64(largest.FileSize)
	default:
		return models.FileRef{}, false
	}
	return result, true
}
