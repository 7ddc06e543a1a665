// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alibaba/opensandbox/treegen/pkg/fixture"
	"github.com/alibaba/opensandbox/treegen/pkg/log"
	"github.com/alibaba/opensandbox/treegen/pkg/metrics"
	"github.com/alibaba/opensandbox/treegen/pkg/web/controller"
	"github.com/alibaba/opensandbox/treegen/pkg/web/model"
)

// Config wires the router to its two trees: the served root that harness
// runs upload into, and the fixture root the fixture API generates and mutates.
type Config struct {
	AccessToken  string
	ServeRoot    string
	FixtureRoot  string
	Options      fixture.Options
	IndexOptions fixture.IndexOptions
	Seed         uint64
}

// NewRouter builds a Gin engine with the file server, fixture and metrics routes.
func NewRouter(cfg Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware())

	r.GET("/ping", controller.PingHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	guarded := r.Group("", accessTokenMiddleware(cfg.AccessToken))

	api := guarded.Group("/api")
	{
		api.POST("/upload", withFilesystem(cfg.ServeRoot, func(c *controller.FilesystemController) { c.UploadFile() }))
		api.GET("/raw", withFilesystem(cfg.ServeRoot, func(c *controller.FilesystemController) { c.DownloadFile() }))
	}

	state := controller.NewFixtureState(cfg.FixtureRoot, cfg.Options, cfg.IndexOptions, cfg.Seed)
	fx := guarded.Group("/fixture")
	{
		fx.POST("/generate", withFixture(state, func(c *controller.FixtureController) { c.Generate() }))
		fx.GET("/index", withFixture(state, func(c *controller.FixtureController) { c.Index() }))
		fx.POST("/mutations", withFixture(state, func(c *controller.FixtureController) { c.Mutate() }))
		fx.GET("/stats", withFixture(state, func(c *controller.FixtureController) { c.GetStats() }))
	}

	return r
}

func withFilesystem(root string, fn func(*controller.FilesystemController)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fn(controller.NewFilesystemController(ctx, root))
	}
}

func withFixture(state *controller.FixtureState, fn func(*controller.FixtureController)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		fn(controller.NewFixtureController(ctx, state))
	}
}

func accessTokenMiddleware(token string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token == "" {
			ctx.Next()
			return
		}

		requestedToken := ctx.GetHeader(model.ApiAccessTokenHeader)
		if requestedToken == "" || requestedToken != token {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Code:    model.ErrorCodeInvalidRequest,
				Message: "Unauthorized: invalid or missing header " + model.ApiAccessTokenHeader,
			})
			return
		}

		ctx.Next()
	}
}

func logMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		log.Info("Requested: %v - %v -> %d (%s)",
			ctx.Request.Method, ctx.Request.URL.String(), ctx.Writer.Status(), time.Since(start))
	}
}
