/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/agrion/agrion"
	"github.com/agrion/agrion/api/middleware"
	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/internal/apierror"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	agrion *agrion.Agrion
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/outbreaks", a.ReportOutbreak)
	router.POST("/outbreaks/:id/analyze", a.AnalyzeOutbreak)
	router.GET("/biosecurity/threat-monitor", a.ThreatMonitor)
	router.GET("/biosecurity/containment-status", a.ContainmentStatus)
	router.POST("/biosecurity/containments/:id/override", a.OverrideContainment)

	router.POST("/circular/report-waste", a.ReportWaste)
	router.POST("/circular/waste/:id/process", a.ProcessWaste)
	router.POST("/circular/spend-credits", a.SpendCredits)
	router.GET("/circular/credits/:farm_id", a.GetCredit)
	router.GET("/circular/dashboard/:farm_id", a.CircularDashboard)

	router.POST("/futures/hedging-sweep", a.RunHedgingSweep)
	router.POST("/futures/contracts/:id/match", a.MatchContract)
	router.GET("/futures/dashboard/:farm_id", a.FuturesDashboard)

	router.POST("/sync/:task", a.RunSync)
	return a.router
}

func NewAPI(engine *agrion.Agrion) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(conf.ProjectName), middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware(conf.Server.SecretKey, "/"))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{agrion: engine, router: r}
}

// respondError maps engine errors onto HTTP status codes. Unexpected errors are logged and
// reported without their internal detail.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := apierror.As(err); ok && status != http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(status, gin.H{"error": "internal server error"})
}
