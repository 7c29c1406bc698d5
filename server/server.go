package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/depthserve/chromo"
	"github.com/chaos-io/depthserve/depth"
	"github.com/chaos-io/depthserve/util"
)

// 路由顺序即 /health 中的输出顺序
var depthRoutes = []string{depth.DepthAnything, depth.MiDaS, depth.Marigold}

const uploadField = "file"

type Server struct {
	registry *depth.Registry
	engine   *gin.Engine
}

func New(registry *depth.Registry) *Server {
	s := &Server{registry: registry, engine: gin.New()}

	s.engine.Use(requestLogger(), recovery(), cors())
	// 上传大小不做限制，超过内存阈值的部分由 multipart 落盘
	s.engine.MaxMultipartMemory = 32 << 20

	s.engine.GET("/health", s.health)
	for _, name := range depthRoutes {
		s.engine.POST("/"+name, s.depthHandler(s.slot(name)))
	}
	s.engine.POST("/chromostereo/:model", s.chromostereo)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) slot(name string) *depth.Slot {
	if slot, ok := s.registry.Slot(name); ok {
		return slot
	}
	return depth.Unavailable(name, errors.New("not registered"))
}

type depthResponse struct {
	Depth string `json:"depth"`
}

func (s *Server) depthHandler(slot *depth.Slot) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 不可用时不读上传内容，也不做推理
		if _, err := slot.Handle(); err != nil {
			abort(c, err)
			return
		}

		img, ok := readUpload(c)
		if !ok {
			return
		}

		done := util.Trace("inference", "model", slot.Name(), "request_id", c.Writer.Header().Get(requestIDHeader))
		m, err := depth.Run(c.Request.Context(), slot, img)
		done()
		if err != nil {
			abort(c, err)
			return
		}

		encoded, err := depth.EncodeBase64PNG(m)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, depthResponse{Depth: encoded})
	}
}

type healthResponse struct {
	Status string          `json:"status"`
	Models map[string]bool `json:"models"`
}

func (s *Server) health(c *gin.Context) {
	resp := healthResponse{Status: "ok", Models: make(map[string]bool, len(depthRoutes))}
	for _, name := range depthRoutes {
		resp.Models[name] = s.slot(name).Available()
	}
	c.JSON(http.StatusOK, resp)
}

type chromoResponse struct {
	Image string `json:"image"`
}

func (s *Server) chromostereo(c *gin.Context) {
	slot, ok := s.registry.Slot(c.Param("model"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}
	if _, err := slot.Handle(); err != nil {
		abort(c, err)
		return
	}

	params, err := chromoParams(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	img, ok := readUpload(c)
	if !ok {
		return
	}

	m, err := depth.Run(c.Request.Context(), slot, img)
	if err != nil {
		abort(c, err)
		return
	}

	out := chromo.Apply(img, depth.Normalize(m), params)
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		abort(c, fmt.Errorf("png encode: %w", err))
		return
	}
	c.JSON(http.StatusOK, chromoResponse{Image: base64.StdEncoding.EncodeToString(buf.Bytes())})
}

func chromoParams(c *gin.Context) (chromo.Params, error) {
	p := chromo.DefaultParams()
	fields := []struct {
		name string
		dst  *int
	}{
		{"threshold", &p.Threshold},
		{"depth_scale", &p.DepthScale},
		{"feather", &p.Feather},
		{"red_brightness", &p.RedBrightness},
		{"blue_brightness", &p.BlueBrightness},
		{"gamma", &p.Gamma},
		{"black_level", &p.BlackLevel},
		{"white_level", &p.WhiteLevel},
		{"smoothing", &p.Smoothing},
	}
	for _, f := range fields {
		raw, ok := c.GetPostForm(f.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return p, fmt.Errorf("invalid %s: %q", f.name, raw)
		}
		*f.dst = v
	}
	return p, nil
}

// readUpload 读取 multipart 的 file 字段并解码；失败时已写好响应
func readUpload(c *gin.Context) (image.Image, bool) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "field required: " + uploadField})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		abort(c, fmt.Errorf("open upload: %w", err))
		return nil, false
	}
	defer func() {
		_ = f.Close()
	}()

	img, format, err := util.DecodeImage(f)
	if err != nil {
		abort(c, err)
		return nil, false
	}

	logger(c).Debug("upload decoded", "filename", fh.Filename, "size", fh.Size, "format", format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, true
}

// abort 所有失败统一返回不带细节的 500，原因只写日志
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	logger(c).Error("request failed", "error", err, "model_unavailable", errors.Is(err, depth.ErrModelUnavailable))
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	c.Abort()
}
