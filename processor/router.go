package processor

import (
	"encoding/json"

	"stockpulse/internal/metrics"
	"stockpulse/logger"
	"stockpulse/models"
)

// Router classifies raw feed messages and dispatches them. Malformed
// payloads are logged and dropped; they never affect the connection.
type Router struct {
	engine *Engine
	log    *logger.Log
}

func NewRouter(engine *Engine) *Router {
	return &Router{
		engine: engine,
		log:    logger.GetLogger(),
	}
}

// Route decodes one raw feed payload and dispatches it by message kind.
func (r *Router) Route(raw []byte) {
	log := r.log.WithComponent("message_router")

	var env models.FeedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.WithError(err).WithFields(logger.Fields{"payload": string(raw)}).Error("failed to decode feed message")
		metrics.IncrementDropped("decode_error")
		return
	}

	switch models.KindFromType(env.Type) {
	case models.KindTrade:
		logger.IncrementTradeRead(len(raw))
		r.engine.ProcessTrades(env)
	case models.KindPing:
		log.Debug("ping received")
	case models.KindSubscriptionAck:
		log.WithFields(logger.Fields{"payload": string(raw)}).Info("subscription confirmation received")
	default:
		log.WithFields(logger.Fields{"type": env.Type, "payload": string(raw)}).Warn("received unhandled message type")
		metrics.IncrementDropped("unknown_type")
	}
}
