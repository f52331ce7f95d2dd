// Package handlers exposes the tracking endpoints over HTTP.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lazysauce/collector/internal/clientip"
	"github.com/lazysauce/collector/internal/ingest"
)

const shopifyInstallPrompt = "Please install Lazysauce App to proceed"

type TrackingHandler struct {
	Svc     *ingest.Service
	Log     *zap.Logger
	Version string
}

func (h *TrackingHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// fail reports client errors as 200 {"error": msg} and everything else
// as a 500 carrying the raw message.
func (h *TrackingHandler) fail(w http.ResponseWriter, r *http.Request, callback string, err error) {
	if msg, ok := ingest.ClientMessage(err); ok {
		writeJSONP(w, callback, http.StatusOK, errorBody{Error: msg})
		return
	}
	h.logger().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Message: err.Error()})
}

func (h *TrackingHandler) Hit(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()

	if p.int("shopify", 0) == 1 && p.int("appInstall", 0) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(shopifyInstallPrompt))
		return
	}

	ua := p.get("ua")
	if ua == "" {
		ua = r.UserAgent()
	}
	resp, err := h.Svc.Hit(r.Context(), ingest.HitRequest{
		URL:                p.get("lazy_url"),
		ActionOffer:        p.get("ao"),
		AdvertiserID:       p.get("a"),
		License:            p.get("l"),
		Key:                p.get("p"),
		ChannelVar:         p.get("cv"),
		ChannelOverride:    p.get("co"),
		SubchannelVar:      p.get("sv"),
		SubchannelOverride: p.get("so"),
		TargetOverride:     p.get("to"),
		Variant:            p.int("v", 1),
		Engagement:         p.int("e", 1),
		IP:                 p.get("i"),
		ClientIP:           clientip.FromRequest(r),
		UserAgent:          ua,
		Languages:          p.get("lg"),
		ScreenWidth:        p.int("scw", 0),
		ScreenHeight:       p.int("sch", 0),
		TimezoneOffset:     p.int("tzo", 0),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	if resp.Blocked {
		writeJSONP(w, cb, http.StatusOK, ingest.BlockedResponse{PKey: resp.PKey, Hash: resp.Hash})
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) Action(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()
	resp, err := h.Svc.Action(r.Context(), ingest.ActionRequest{
		Key:          p.get("p"),
		Hash:         p.get("h"),
		URL:          p.get("lazy_url"),
		AdvertiserID: p.get("a"),
		License:      p.get("l"),
		Name:         p.get("ao"),
		Variant:      p.int("v", 1),
		Engagement:   p.int("e", 1),
		LogString:    p.get("lo"),
		Revenue:      p.get("r"),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()
	resp, err := h.Svc.Checkpoint(r.Context(), ingest.CheckpointRequest{
		Key:  p.get("p"),
		Hash: p.get("h"),
		Name: p.get("c"),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) Param(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()
	resp, err := h.Svc.Param(r.Context(), ingest.ParamRequest{
		Key:          p.get("p"),
		Hash:         p.get("h"),
		URL:          p.get("lazy_url"),
		AdvertiserID: p.get("a"),
		License:      p.get("l"),
		Name:         p.get("pn"),
		Value:        p.get("pv"),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) Sale(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()
	resp, err := h.Svc.Sale(r.Context(), ingest.SaleRequest{
		Hash:      p.get("h"),
		Revenue:   p.get("r"),
		LogString: p.get("lo"),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) SocialProof(w http.ResponseWriter, r *http.Request) {
	p := readParams(w, r)
	cb := p.callback()
	resp, err := h.Svc.SocialProof(r.Context(), ingest.SocialProofRequest{
		Domain:     p.get("d"),
		Trigger:    p.get("t"),
		MinRevenue: p.get("mr"),
		Hours:      p.get("i"),
		Count:      p.get("r"),
	})
	if err != nil {
		h.fail(w, r, cb, err)
		return
	}
	writeJSONP(w, cb, http.StatusOK, resp)
}

func (h *TrackingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "LazySauce collector is running",
		"version": h.Version,
	})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	jsonError(w, "Endpoint not found", http.StatusNotFound)
}
