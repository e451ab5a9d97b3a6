package server

import (
	"net/http"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/preset"
	"ai_gallery_simulator/publisher"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// --- Requests / responses ---

type feedbackResp struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

type presetSaveReq struct {
	Name     string             `json:"name"`
	Settings generator.Settings `json:"settings"`
}

type presetListResp struct {
	Presets []preset.Preset `json:"presets"`
}

// --- Handlers ---

func (s *Server) handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, generator.Options())
}

// bindSettings 解析并校验设置；校验失败在任何模型调用之前返回 400。
func bindSettings(c *gin.Context) (generator.Settings, bool) {
	var settings generator.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return generator.Settings{}, false
	}
	settings = settings.Normalized()
	if err := settings.Validate(); err != nil {
		writeError(c, err)
		return generator.Settings{}, false
	}
	return settings, true
}

func (s *Server) handleSessionCreate(c *gin.Context) {
	settings, ok := bindSettings(c)
	if !ok {
		return
	}
	sess := s.sessions.create(settings)
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if _, err := sess.Generate(ctx, nil); err != nil {
		writeError(c, err)
		return
	}
	s.sessions.set(sess)
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleSessionGet(c *gin.Context) {
	sess, ok := s.sessions.get(c.Request.Context(), c.Param("id"))
	if !ok {
		sessionNotFound(c)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePostCreate(c *gin.Context) {
	sess, ok := s.sessions.get(c.Request.Context(), c.Param("id"))
	if !ok {
		sessionNotFound(c)
		return
	}
	var draft generator.PostDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	post, err := sess.AddPost(ctx, draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleCommentCreate(c *gin.Context) {
	sess, ok := s.sessions.get(c.Request.Context(), c.Param("id"))
	if !ok {
		sessionNotFound(c)
		return
	}
	var draft generator.CommentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	post, err := sess.AddComment(ctx, c.Param("postID"), draft)
	if err != nil {
		status, body := classifyError(err)
		// 用户评论已保存，只有后续评论失败
		if post.ID != "" {
			body.Post = &post
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleFeedback(c *gin.Context) {
	sess, ok := s.sessions.get(c.Request.Context(), c.Param("id"))
	if !ok {
		sessionNotFound(c)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	text, err := sess.WorldviewFeedback(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	html, err := publisher.MarkdownToHTML(text)
	if err != nil {
		s.logger.Warn("feedback markdown conversion failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, feedbackResp{Markdown: text, HTML: html})
}

func (s *Server) handlePresetList(c *gin.Context) {
	list, err := s.presets.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, presetListResp{Presets: list})
}

func (s *Server) handlePresetSave(c *gin.Context) {
	var req presetSaveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.presets.Save(c.Request.Context(), req.Name, req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handlePresetDelete(c *gin.Context) {
	if err := s.presets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
