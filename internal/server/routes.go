package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
	"github.com/GwennKoi/XorShiftLPC/internal/jobs"
	"github.com/GwennKoi/XorShiftLPC/internal/store"
	"github.com/GwennKoi/XorShiftLPC/internal/telemetry"
	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

const requestIDHeader = "X-Request-ID"

type router struct {
	server *Server
}

func configureRouter(s *Server) {
	router := &router{server: s}
	r := gin.New()
	r.Use(requestID, accessLog, gin.Recovery())

	r.GET("/health", router.health)
	r.GET("/seed", router.generateSeed)

	r.POST("/range", router.randomInRange)
	r.POST("/shuffle", router.shuffle)
	r.POST("/shuffle/batch", router.shuffleBatch)
	r.POST("/pick", router.pick)

	const sequencePath = "/sequences/:name"
	r.PUT(sequencePath, router.putSequence)
	r.GET(sequencePath, router.getSequence)
	r.DELETE(sequencePath, router.deleteSequence)
	r.POST(sequencePath+"/range", router.sequenceRange)
	r.POST(sequencePath+"/shuffle", router.sequenceShuffle)
	r.POST(sequencePath+"/pick", router.sequencePick)

	s.engine = r
}

func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger_config.Logger.Debug("request",
		"id", c.GetString("request_id"),
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"latency", time.Since(start),
	)
}

type seedResponse struct {
	Seed xorshift.Seed `json:"seed"`
}

type resultResponse struct {
	Result any           `json:"result"`
	Seed   xorshift.Seed `json:"seed"`
}

type rangeRequest struct {
	Size int    `json:"size"`
	Seed *int64 `json:"seed" binding:"required"`
}

// Items are kept as raw JSON so any element type round-trips untouched.
type itemsRequest struct {
	Items []json.RawMessage `json:"items"`
	Seed  *int64            `json:"seed" binding:"required"`
}

type batchRequest struct {
	Requests []struct {
		Items []string `json:"items"`
		Seed  *int64   `json:"seed" binding:"required"`
	} `json:"requests" binding:"required,dive"`
}

type batchResponse struct {
	Results []resultResponse `json:"results"`
}

func (r *router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *router) generateSeed(c *gin.Context) {
	c.JSON(http.StatusOK, seedResponse{Seed: xorshift.GenerateSeed()})
}

func (r *router) randomInRange(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	res, err := xorshift.RandomInRange(req.Size, xorshift.Sanitize(*req.Seed))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindRange, 0)
	c.JSON(http.StatusOK, resultResponse{Result: res.Value, Seed: res.Seed})
}

func (r *router) shuffle(c *gin.Context) {
	var req itemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	res, err := xorshift.Shuffle(req.Items, xorshift.Sanitize(*req.Seed))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindShuffle, len(req.Items))
	c.JSON(http.StatusOK, resultResponse{Result: res.Value, Seed: res.Seed})
}

func (r *router) pick(c *gin.Context) {
	var req itemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	res, err := xorshift.ElementOf(req.Items, xorshift.Sanitize(*req.Seed))
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindPick, len(req.Items))
	c.JSON(http.StatusOK, resultResponse{Result: res.Value, Seed: res.Seed})
}

func (r *router) shuffleBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	reqs := make([]jobs.ShuffleRequest, len(req.Requests))
	for i, item := range req.Requests {
		reqs[i] = jobs.ShuffleRequest{Items: item.Items, Seed: xorshift.Sanitize(*item.Seed)}
	}

	results, err := jobs.Run(c.Request.Context(), r.server.pool, reqs)
	if err != nil {
		r.fail(c, err)
		return
	}

	out := batchResponse{Results: make([]resultResponse, len(results))}
	for i, res := range results {
		// one bad entry fails the whole batch
		if res.Err != nil {
			r.fail(c, res.Err)
			return
		}
		r.emit(telemetry.KindShuffle, len(res.Values))
		out.Results[i] = resultResponse{Result: res.Values, Seed: res.Seed}
	}
	c.JSON(http.StatusOK, out)
}

type sequenceResponse struct {
	Name string        `json:"name"`
	Seed xorshift.Seed `json:"seed"`
}

func (r *router) putSequence(c *gin.Context) {
	var req struct {
		Seed *int64 `json:"seed"`
	}
	// an empty body asks for a generated seed
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		r.fail(c, badRequest(err))
		return
	}

	seed := xorshift.GenerateSeed()
	if req.Seed != nil {
		seed = xorshift.Sanitize(*req.Seed)
	}

	name := c.Param("name")
	if err := r.server.store.Put(c.Request.Context(), name, seed); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sequenceResponse{Name: name, Seed: seed})
}

func (r *router) getSequence(c *gin.Context) {
	name := c.Param("name")
	seed, err := r.server.store.Get(c.Request.Context(), name)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sequenceResponse{Name: name, Seed: seed})
}

func (r *router) deleteSequence(c *gin.Context) {
	if err := r.server.store.Delete(c.Request.Context(), c.Param("name")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *router) sequenceRange(c *gin.Context) {
	var req struct {
		Size int `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	var value int
	next, err := r.server.store.Advance(c.Request.Context(), c.Param("name"), func(cur xorshift.Seed) (xorshift.Seed, error) {
		res, err := xorshift.RandomInRange(req.Size, cur)
		value = res.Value
		return res.Seed, err
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindRange, 0)
	c.JSON(http.StatusOK, resultResponse{Result: value, Seed: next})
}

func (r *router) sequenceShuffle(c *gin.Context) {
	var req struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	var values []json.RawMessage
	next, err := r.server.store.Advance(c.Request.Context(), c.Param("name"), func(cur xorshift.Seed) (xorshift.Seed, error) {
		res, err := xorshift.Shuffle(req.Items, cur)
		values = res.Value
		return res.Seed, err
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindShuffle, len(req.Items))
	c.JSON(http.StatusOK, resultResponse{Result: values, Seed: next})
}

func (r *router) sequencePick(c *gin.Context) {
	var req struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		r.fail(c, badRequest(err))
		return
	}

	var value json.RawMessage
	next, err := r.server.store.Advance(c.Request.Context(), c.Param("name"), func(cur xorshift.Seed) (xorshift.Seed, error) {
		res, err := xorshift.ElementOf(req.Items, cur)
		value = res.Value
		return res.Seed, err
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	r.emit(telemetry.KindPick, len(req.Items))
	c.JSON(http.StatusOK, resultResponse{Result: value, Seed: next})
}

func (r *router) emit(kind string, n int) {
	r.server.sink.Emit(telemetry.Event{Kind: kind, N: n, At: time.Now()})
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

func (r *router) fail(c *gin.Context, err error) {
	var reqErr *requestError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, xorshift.ErrInvalidInput),
		errors.Is(err, xorshift.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, jobs.ErrPoolClosed):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		logger_config.Logger.Error("request failed", "id", c.GetString("request_id"), "err", err)
	}
	r.emit(telemetry.KindError, 0)
	c.JSON(status, gin.H{"error": err.Error()})
}
