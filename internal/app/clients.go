package app

import (
	"github.com/veldtops/fieldsuite-backend/internal/clients/mindee"
	"github.com/veldtops/fieldsuite-backend/internal/clients/msgraph"
	"github.com/veldtops/fieldsuite-backend/internal/clients/openrouter"
	"github.com/veldtops/fieldsuite-backend/internal/clients/rapidapi"
	"github.com/veldtops/fieldsuite-backend/internal/clients/redis"
	"github.com/veldtops/fieldsuite-backend/internal/platform/crypt"
	"github.com/veldtops/fieldsuite-backend/internal/platform/gcp"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Clients holds the external integrations. Everything here is optional:
// a nil client means the integration is not configured and the dependent
// feature degrades (extraction skips that pass, GST lookup refuses, mail
// connect refuses).
type Clients struct {
	Bucket     gcp.BucketService
	DocAI      gcp.DocumentAI
	Vision     gcp.Vision
	OpenRouter openrouter.Client
	Mindee     mindee.Client
	GST        rapidapi.GSTClient
	Graph      msgraph.Client
	Cache      redis.KVCache
	Sealer     *crypt.Sealer
}

func wireClients(log *logger.Logger) Clients {
	var c Clients

	if bucket, err := gcp.NewBucketService(log); err != nil {
		log.Warn("GCS bucket disabled", "reason", err)
	} else {
		c.Bucket = bucket
	}
	if docAI, err := gcp.NewDocumentAI(log); err != nil {
		log.Warn("Document AI disabled", "reason", err)
	} else {
		c.DocAI = docAI
	}
	if vision, err := gcp.NewVision(log); err != nil {
		log.Warn("Vision OCR disabled", "reason", err)
	} else {
		c.Vision = vision
	}
	if router, err := openrouter.NewFromEnv(log); err != nil {
		log.Warn("OpenRouter disabled", "reason", err)
	} else {
		c.OpenRouter = router
	}
	if mc, err := mindee.NewFromEnv(log); err != nil {
		log.Warn("Mindee disabled", "reason", err)
	} else {
		c.Mindee = mc
	}
	if gst, err := rapidapi.NewGSTFromEnv(log); err != nil {
		log.Warn("GST lookup disabled", "reason", err)
	} else {
		c.GST = gst
	}
	if graph, err := msgraph.NewFromEnv(log); err != nil {
		log.Warn("Microsoft Graph disabled", "reason", err)
	} else {
		c.Graph = graph
	}
	if cache, err := redis.NewKVCache(log); err != nil {
		log.Warn("shared cache disabled", "reason", err)
	} else {
		c.Cache = cache
	}
	if sealer, err := crypt.SealerFromEnv(); err != nil {
		log.Warn("mail token sealer disabled", "reason", err)
	} else {
		c.Sealer = sealer
	}

	return c
}
