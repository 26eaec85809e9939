package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/bookbot/internal/providers/stt"
	"github.com/yoockh/bookbot/internal/services"
	"github.com/yoockh/bookbot/internal/utils"
)

// maxAudioBytes bounds uploads to what synchronous recognition accepts.
const maxAudioBytes = 10 << 20

type ChatHandler struct {
	chat    services.ChatService
	speech  services.SpeechService
	history services.ChatLogService
}

func NewChatHandler(chat services.ChatService, speech services.SpeechService, history services.ChatLogService) *ChatHandler {
	return &ChatHandler{chat: chat, speech: speech, history: history}
}

type ChatRequest struct {
	Prompt        string `json:"prompt" binding:"required"`
	GenerateImage *bool  `json:"generate_image"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "invalid request body", err))
		return
	}

	resp, err := h.chat.Chat(c.Request.Context(), services.ChatRequest{
		Prompt:        req.Prompt,
		GenerateImage: req.GenerateImage,
		Username:      username,
		RequestID:     requestID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Blocked {
		c.JSON(http.StatusOK, MessageResponse{Message: resp.Message})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Speech accepts audio as multipart field "audio" or as the raw body.
func (h *ChatHandler) Speech(c *gin.Context) {
	const op = "ChatHandler.Speech"

	username, ok := requireUsername(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)
	audio, err := readAudio(c)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "could not read audio", err))
		return
	}

	language := c.DefaultQuery("language", stt.DefaultLanguage)
	resp, err := h.speech.Chat(c.Request.Context(), services.SpeechRequest{
		Audio:     audio,
		Language:  language,
		Username:  username,
		RequestID: requestID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func readAudio(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("audio")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}

func (h *ChatHandler) History(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	rows, err := h.history.Recent(c.Request.Context(), username, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
