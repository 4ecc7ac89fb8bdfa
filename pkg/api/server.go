package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/processor"
	"github.com/openexch/matchengine/pkg/match/raftnode"
	"github.com/openexch/matchengine/pkg/tradesink"
)

// Server is the HTTP front-end. State-changing requests are turned
// into commands and proposed through the raft node; queries read the
// local state machine directly.
type Server struct {
	node   *raftnode.Node
	sink   *tradesink.Sink
	router *mux.Router
	log    *zap.Logger
}

func NewServer(node *raftnode.Node, sink *tradesink.Sink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		node:   node,
		sink:   sink,
		router: mux.NewRouter(),
		log:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/symbols", s.handleCreateSymbol).Methods("POST")
	api.HandleFunc("/symbols", s.handleUpdateSymbol).Methods("PUT")
	api.HandleFunc("/symbols", s.handleListSymbols).Methods("GET")
	api.HandleFunc("/symbols/{symbol}", s.handleRemoveSymbol).Methods("DELETE")
	api.HandleFunc("/symbols/{symbol}/pause", s.handlePauseSymbol).Methods("POST")
	api.HandleFunc("/symbols/{symbol}/resume", s.handleResumeSymbol).Methods("POST")
	api.HandleFunc("/symbols/{symbol}/depth", s.handleDepth).Methods("GET")

	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{symbol}/{order_id}", s.handleQueryOrder).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"leader": s.node.IsLeader(),
	})
}

func (s *Server) handleCreateSymbol(w http.ResponseWriter, r *http.Request) {
	var req CreateSymbolRequest
	if !s.decode(w, r, &req) {
		return
	}
	minQty, maxQty, minAmt, maxAmt, err := parseLimits(req.MinQuantity, req.MaxQuantity, req.MinAmount, req.MaxAmount)
	if err != nil {
		s.writeResult(w, &Response{Code: int32(model.CodeInvalidParameter), Message: err.Error()})
		return
	}
	sym := &model.Symbol{
		Name:              req.Symbol,
		BaseAsset:         req.BaseAsset,
		QuoteAsset:        req.QuoteAsset,
		PricePrecision:    req.PricePrecision,
		QuantityPrecision: req.QuantityPrecision,
		MinQuantity:       minQty,
		MaxQuantity:       maxQty,
		MinAmount:         minAmt,
		MaxAmount:         maxAmt,
		Status:            model.SymbolStatusAlive,
	}
	res, err := s.propose(r, &model.Command{Tag: model.TagCreateSymbol, Symbol: sym})
	s.writeCommandResult(w, res, err)
}

func (s *Server) handleUpdateSymbol(w http.ResponseWriter, r *http.Request) {
	var req CreateSymbolRequest
	if !s.decode(w, r, &req) {
		return
	}
	minQty, maxQty, minAmt, maxAmt, err := parseLimits(req.MinQuantity, req.MaxQuantity, req.MinAmount, req.MaxAmount)
	if err != nil {
		s.writeResult(w, &Response{Code: int32(model.CodeInvalidParameter), Message: err.Error()})
		return
	}
	sym := &model.Symbol{
		Name:              req.Symbol,
		BaseAsset:         req.BaseAsset,
		QuoteAsset:        req.QuoteAsset,
		PricePrecision:    req.PricePrecision,
		QuantityPrecision: req.QuantityPrecision,
		MinQuantity:       minQty,
		MaxQuantity:       maxQty,
		MinAmount:         minAmt,
		MaxAmount:         maxAmt,
	}
	res, err := s.propose(r, &model.Command{Tag: model.TagUpdateSymbol, Symbol: sym})
	s.writeCommandResult(w, res, err)
}

func (s *Server) handleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["symbol"]
	res, err := s.propose(r, &model.Command{Tag: model.TagRemoveSymbol, SymbolName: name})
	s.writeCommandResult(w, res, err)
}

func (s *Server) handlePauseSymbol(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["symbol"]
	res, err := s.propose(r, &model.Command{Tag: model.TagPauseSymbol, SymbolName: name})
	s.writeCommandResult(w, res, err)
}

func (s *Server) handleResumeSymbol(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["symbol"]
	res, err := s.propose(r, &model.Command{Tag: model.TagResumeSymbol, SymbolName: name})
	s.writeCommandResult(w, res, err)
}

func (s *Server) handleListSymbols(w http.ResponseWriter, _ *http.Request) {
	symbols := s.node.FSM().ListSymbols()
	resp := &ListSymbolsResponse{Response: Response{Code: int32(model.CodeSuccess)}}
	for _, sym := range symbols {
		resp.Symbols = append(resp.Symbols, symbolInfo(sym))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["symbol"]
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	bids, asks, err := s.node.FSM().Depth(name, limit)
	if err != nil {
		s.writeResult(w, responseFromError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, &DepthResponse{
		Response: Response{Code: int32(model.CodeSuccess)},
		Bids:     depthLevels(bids),
		Asks:     depthLevels(asks),
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	order, err := orderFromRequest(&req)
	if err != nil {
		s.writeResult(w, responseFromError(err))
		return
	}
	res, err := s.propose(r, &model.Command{Tag: model.TagPlaceOrder, Order: order})
	if err != nil {
		s.writeResult(w, s.errorResponse(err))
		return
	}
	if s.sink != nil && len(res.Trades) > 0 {
		s.sink.Publish(res.Trades)
	}
	s.writeJSON(w, http.StatusOK, &PlaceOrderResponse{
		Response: Response{Code: int32(res.Code), Message: res.Message},
		Order:    orderState(res.Order),
		Trades:   tradeInfos(res.Trades),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.propose(r, &model.Command{
		Tag:        model.TagCancelOrder,
		SymbolName: req.Symbol,
		OrderID:    req.OrderID,
	})
	if err != nil {
		s.writeResult(w, s.errorResponse(err))
		return
	}
	s.writeJSON(w, http.StatusOK, &QueryOrderResponse{
		Response: Response{Code: int32(res.Code), Message: res.Message},
		Order:    orderState(res.Order),
	})
}

func (s *Server) handleQueryOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	order, err := s.node.FSM().QueryOrder(vars["symbol"], vars["order_id"])
	if err != nil {
		s.writeResult(w, responseFromError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, &QueryOrderResponse{
		Response: Response{Code: int32(model.CodeSuccess)},
		Order:    orderState(order),
	})
}

func (s *Server) propose(r *http.Request, cmd *model.Command) (*processor.ApplyResult, error) {
	requestID := uuid.New().String()
	res, err := s.node.Propose(cmd)
	if err != nil {
		s.log.Warn("proposal failed",
			zap.String("request_id", requestID),
			zap.String("command", cmd.Tag.String()),
			zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (s *Server) errorResponse(err error) *Response {
	if errors.Is(err, raftnode.ErrNotLeader) {
		return &Response{
			Code:    int32(model.CodeFail),
			Message: "not the leader",
			Leader:  s.node.LeaderAddr(),
		}
	}
	return &Response{Code: int32(model.CodeInternalError), Message: err.Error()}
}

func (s *Server) writeCommandResult(w http.ResponseWriter, res *processor.ApplyResult, err error) {
	if err != nil {
		s.writeResult(w, s.errorResponse(err))
		return
	}
	s.writeResult(w, &Response{Code: int32(res.Code), Message: res.Message})
}

func (s *Server) writeResult(w http.ResponseWriter, resp *Response) {
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeResult(w, &Response{Code: int32(model.CodeInvalidParameter), Message: "malformed request body"})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response failed", zap.Error(err))
	}
}

func responseFromError(err error) *Response {
	kind := model.KindOf(err)
	return &Response{Code: int32(kind.Code()), Message: err.Error()}
}

func parseLimits(minQty, maxQty, minAmt, maxAmt string) (a, b, c, d decimal.Decimal, err error) {
	if a, err = decimal.NewFromString(minQty); err != nil {
		return
	}
	if b, err = decimal.NewFromString(maxQty); err != nil {
		return
	}
	if c, err = decimal.NewFromString(minAmt); err != nil {
		return
	}
	d, err = decimal.NewFromString(maxAmt)
	return
}

func orderFromRequest(req *PlaceOrderRequest) (*model.Order, error) {
	side, err := model.ParseSide(req.Side)
	if err != nil {
		return nil, err
	}
	typ, err := model.ParseOrderType(req.Type)
	if err != nil {
		return nil, err
	}
	tif, err := model.ParseTimeInForce(req.TimeInForce)
	if err != nil {
		return nil, err
	}
	price := decimal.Zero
	if typ != model.OrderTypeMarket {
		if price, err = decimal.NewFromString(req.Price); err != nil {
			return nil, model.NewError(model.KindInvalidParameter, "bad price %q", req.Price)
		}
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, model.NewError(model.KindInvalidParameter, "bad quantity %q", req.Quantity)
	}
	makerFee := decimal.Zero
	if req.MakerFeeRate != "" {
		if makerFee, err = decimal.NewFromString(req.MakerFeeRate); err != nil {
			return nil, model.NewError(model.KindInvalidParameter, "bad maker fee rate %q", req.MakerFeeRate)
		}
	}
	takerFee := decimal.Zero
	if req.TakerFeeRate != "" {
		if takerFee, err = decimal.NewFromString(req.TakerFeeRate); err != nil {
			return nil, model.NewError(model.KindInvalidParameter, "bad taker fee rate %q", req.TakerFeeRate)
		}
	}
	return &model.Order{
		OrderID:      req.OrderID,
		AccountID:    req.AccountID,
		Symbol:       req.Symbol,
		Side:         side,
		Type:         typ,
		TimeInForce:  tif,
		Price:        price,
		Quantity:     qty,
		MakerFeeRate: makerFee,
		TakerFeeRate: takerFee,
	}, nil
}
