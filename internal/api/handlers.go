package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Devprenuer/ai-tutor/internal/lessons"
	"github.com/Devprenuer/ai-tutor/internal/questions"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

func (s *Server) health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) user(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

type questionQuery struct {
	TopicID         uint   `form:"topic_id" binding:"required"`
	DifficultyLevel int    `form:"difficulty_level" binding:"required,min=1,max=10"`
	QuestionType    string `form:"question_type"`
	Page            int    `form:"page,default=1" binding:"min=1"`
}

func (s *Server) nextQuestion(c *gin.Context) {
	var q questionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}
	qt := store.QuestionTypeCoding
	if q.QuestionType != "" {
		var err error
		if qt, err = store.ParseQuestionType(q.QuestionType); err != nil {
			s.badRequest(c, err)
			return
		}
	}

	question, err := s.questions.Next(c.Request.Context(), currentUser(c).ID, questions.Request{
		TopicID:         q.TopicID,
		DifficultyLevel: q.DifficultyLevel,
		QuestionType:    qt,
		Page:            q.Page,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

type pageQuery struct {
	Page int `form:"page,default=1" binding:"min=1"`
}

func (s *Server) nextHint(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}

	hint, err := s.hints.Next(c.Request.Context(), currentUser(c).ID, id, q.Page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

type answerBody struct {
	Answer string `json:"answer" binding:"required"`
}

func (s *Server) answer(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	var body answerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err)
		return
	}

	res, err := s.answers.Submit(c.Request.Context(), currentUser(c).ID, id, body.Answer)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Question answered successfully",
		"answer":     res.Answer,
		"score":      res.Score,
		"time_taken": res.TimeTaken,
	})
}

type lessonSearchQuery struct {
	TopicID                  uint     `form:"topic_id"`
	QuestionIDs              []string `form:"question_ids"`
	DifficultyLevel          int      `form:"difficulty_level" binding:"min=0,max=10"`
	GrowingDifficulty        bool     `form:"growing_difficulty"`
	DifficultyLevelDirection string   `form:"difficulty_level_direction"`
	CreatedAtDirection       string   `form:"created_at_direction"`
	Query                    string   `form:"query"`
	Page                     int      `form:"page,default=1" binding:"min=1"`
}

func (s *Server) searchLessons(c *gin.Context) {
	var q lessonSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}
	ids, err := parseIDs(append(q.QuestionIDs, c.QueryArray("question_ids[]")...))
	if err != nil {
		s.badRequest(c, err)
		return
	}

	res, err := s.lessons.Search(c.Request.Context(), lessons.SearchParams{
		TopicID:           q.TopicID,
		QuestionIDs:       ids,
		DifficultyLevel:   q.DifficultyLevel,
		GrowingDifficulty: q.GrowingDifficulty,
		Query:             q.Query,
		Sort: lessons.SortSpec{
			CreatedAt:  lessons.SortDirection(q.CreatedAtDirection),
			Difficulty: lessons.SortDirection(q.DifficultyLevelDirection),
		},
		Page: q.Page,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type nextLessonQuery struct {
	TopicID         uint     `form:"topic_id" binding:"required"`
	DifficultyLevel int      `form:"difficulty_level" binding:"required,min=1,max=10"`
	QuestionIDs     []string `form:"question_ids"`
	Page            int      `form:"page,default=1" binding:"min=1"`
}

func (s *Server) nextLesson(c *gin.Context) {
	var q nextLessonQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}
	ids, err := parseIDs(append(q.QuestionIDs, c.QueryArray("question_ids[]")...))
	if err != nil {
		s.badRequest(c, err)
		return
	}

	lesson, err := s.lessons.Next(c.Request.Context(), currentUser(c).ID, lessons.Request{
		TopicID:         q.TopicID,
		DifficultyLevel: q.DifficultyLevel,
		QuestionIDs:     ids,
		Page:            q.Page,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

type showLessonQuery struct {
	CreatedAtDirection       string `form:"created_at_direction"`
	DifficultyLevelDirection string `form:"difficulty_level_direction"`
}

func (s *Server) showLesson(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}
	var q showLessonQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.badRequest(c, err)
		return
	}

	page, err := s.lessons.Show(c.Request.Context(), currentUser(c).ID, id, lessons.SortSpec{
		CreatedAt:  lessons.SortDirection(q.CreatedAtDirection),
		Difficulty: lessons.SortDirection(q.DifficultyLevelDirection),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		s.badRequest(c, fmt.Errorf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// parseIDs accepts repeated values and comma-separated lists.
func parseIDs(values []string) ([]uint, error) {
	var ids []uint
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("invalid question id %q", part)
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, nil
}
