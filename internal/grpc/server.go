// Package grpc serves the public catalog reads over gRPC. Messages are plain
// Go structs carried by the JSON codec, so no generated code is involved.
package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"yamdb/internal/apperr"
	"yamdb/internal/catalog"
	"yamdb/pkg/models"
)

const (
	ServiceName = "yamdb.Catalog"
	maxLimit    = 100
)

type GetTitleRequest struct {
	ID int64 `json:"id"`
}

type ListTitlesRequest struct {
	Name     string `json:"name"`
	Genre    string `json:"genre"`
	Category string `json:"category"`
	Year     *int   `json:"year"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type ListTermsRequest struct {
	Search string `json:"search"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type List[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// CatalogServer is the handler type registered for ServiceName.
type CatalogServer interface {
	GetTitle(context.Context, *GetTitleRequest) (*models.Title, error)
	ListTitles(context.Context, *ListTitlesRequest) (*List[models.Title], error)
	ListCategories(context.Context, *ListTermsRequest) (*List[models.Category], error)
	ListGenres(context.Context, *ListTermsRequest) (*List[models.Genre], error)
}

// Server implements CatalogServer on top of the catalog service.
type Server struct {
	catalog  *catalog.Service
	pageSize int
}

func NewServer(c *catalog.Service, pageSize int) *Server {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Server{catalog: c, pageSize: pageSize}
}

// NewGRPCServer builds a grpc.Server with the catalog registered and a
// request logging interceptor installed.
func NewGRPCServer(s CatalogServer, logger zerolog.Logger, opts ...gogrpc.ServerOption) *gogrpc.Server {
	opts = append(opts, gogrpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))
	gs := gogrpc.NewServer(opts...)
	Register(gs, s)
	return gs
}

func Register(r gogrpc.ServiceRegistrar, s CatalogServer) {
	r.RegisterService(&serviceDesc, s)
}

func (s *Server) GetTitle(ctx context.Context, req *GetTitleRequest) (*models.Title, error) {
	t, err := s.catalog.GetTitle(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &t, nil
}

func (s *Server) ListTitles(ctx context.Context, req *ListTitlesRequest) (*List[models.Title], error) {
	f := catalog.TitleFilter{Name: req.Name, Genre: req.Genre, Category: req.Category, Year: req.Year}
	limit, offset := s.window(req.Limit, req.Offset)
	ts, total, err := s.catalog.ListTitles(ctx, f, limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	return newList(ts, total), nil
}

func (s *Server) ListCategories(ctx context.Context, req *ListTermsRequest) (*List[models.Category], error) {
	limit, offset := s.window(req.Limit, req.Offset)
	cs, total, err := s.catalog.ListCategories(ctx, req.Search, limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	return newList(cs, total), nil
}

func (s *Server) ListGenres(ctx context.Context, req *ListTermsRequest) (*List[models.Genre], error) {
	limit, offset := s.window(req.Limit, req.Offset)
	gs, total, err := s.catalog.ListGenres(ctx, req.Search, limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	return newList(gs, total), nil
}

func (s *Server) window(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.pageSize
	}
	return min(limit, maxLimit), max(offset, 0)
}

func newList[T any](results []T, total int) *List[T] {
	if results == nil {
		results = []T{}
	}
	return &List[T]{Count: total, Results: results}
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return status.Error(codes.Internal, "internal error")
	}
	switch ae.Kind {
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, ae.Message)
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, ae.Error())
	case apperr.KindNotAuthenticated:
		return status.Error(codes.Unauthenticated, ae.Message)
	case apperr.KindPermissionDenied:
		return status.Error(codes.PermissionDenied, ae.Message)
	case apperr.KindConflict:
		return status.Error(codes.AlreadyExists, ae.Message)
	case apperr.KindUnavailable:
		return status.Error(codes.Unavailable, ae.Message)
	}
	return status.Error(codes.Internal, "internal error")
}

// LoggingInterceptor attaches logger to the call context and logs each call
// with its status code.
func LoggingInterceptor(logger zerolog.Logger) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := logger.With().Str("method", info.FullMethod).Logger()
		resp, err := handler(l.WithContext(ctx), req)

		code := status.Code(err)
		ev := l.Info()
		if code == codes.Internal || code == codes.Unknown {
			ev = l.Error().Err(err)
		}
		ev.Str("code", code.String()).Dur("latency", time.Since(start)).Msg("grpc call")
		return resp, err
	}
}

func unary[Req, Resp any](name string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) gogrpc.MethodDesc {
	return gogrpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic gogrpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(CatalogServer)
			if ic == nil {
				return call(s, ctx, in)
			}
			info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []gogrpc.MethodDesc{
		unary("GetTitle", CatalogServer.GetTitle),
		unary("ListTitles", CatalogServer.ListTitles),
		unary("ListCategories", CatalogServer.ListCategories),
		unary("ListGenres", CatalogServer.ListGenres),
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "yamdb/catalog",
}

// Client is a thin caller for ServiceName over a JSON-codec connection.
type Client struct {
	cc gogrpc.ClientConnInterface
}

func NewClient(cc gogrpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetTitle(ctx context.Context, req *GetTitleRequest) (*models.Title, error) {
	out := new(models.Title)
	return out, c.invoke(ctx, "GetTitle", req, out)
}

func (c *Client) ListTitles(ctx context.Context, req *ListTitlesRequest) (*List[models.Title], error) {
	out := new(List[models.Title])
	return out, c.invoke(ctx, "ListTitles", req, out)
}

func (c *Client) ListCategories(ctx context.Context, req *ListTermsRequest) (*List[models.Category], error) {
	out := new(List[models.Category])
	return out, c.invoke(ctx, "ListCategories", req, out)
}

func (c *Client) ListGenres(ctx context.Context, req *ListTermsRequest) (*List[models.Genre], error) {
	out := new(List[models.Genre])
	return out, c.invoke(ctx, "ListGenres", req, out)
}

func (c *Client) invoke(ctx context.Context, method string, req, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, gogrpc.CallContentSubtype(CodecName))
}
