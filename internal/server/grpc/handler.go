package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func field(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func respond(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func strings2list(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}

func tokenPair(p *services.TokenPair) (*structpb.Struct, error) {
	return respond(map[string]any{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
	})
}

func strengthFields(m map[string]any, r strength.Report) {
	m["score"] = r.Score
	m["level"] = string(r.Level)
	m["feedback"] = strings2list(r.Feedback)
}

func entryFields(e *models.VaultEntry) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"site":       e.Site,
		"username":   e.Username,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return respond(map[string]any{"status": "OK"})
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := s.users.Register(ctx, field(req, "email"), field(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"user_id": identity.ID})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.users.Login(ctx, field(req, "email"), field(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return tokenPair(pair)
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.users.Refresh(ctx, field(req, "refresh_token"))
	if err != nil {
		return nil, toStatus(err)
	}
	return tokenPair(pair)
}

func (s *GRPCServer) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.Logout(ctx, userID); err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{})
}

func (s *GRPCServer) CheckPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.security.CheckPassword(ctx, field(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}

	m := map[string]any{
		"exposed": res.Breach.Exposed,
		"count":   res.Breach.Count,
		"offline": res.Breach.Offline,
		"source":  res.Breach.Source,
	}
	strengthFields(m, res.Strength)
	return respond(m)
}

func (s *GRPCServer) CheckEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rep, err := s.security.CheckEmail(ctx, field(req, "email"))
	if err != nil {
		return nil, toStatus(err)
	}

	records := make([]any, 0, len(rep.Records))
	for _, r := range rep.Records {
		records = append(records, recordFields(r))
	}
	return respond(map[string]any{
		"records": records,
		"offline": rep.Offline,
		"source":  rep.Source,
	})
}

func recordFields(r breach.Record) map[string]any {
	return map[string]any{
		"name":         r.Name,
		"title":        r.Title,
		"domain":       r.Domain,
		"date":         r.Date,
		"record_count": r.RecordCount,
		"data_classes": strings2list(r.DataClasses),
		"severity":     string(r.Severity),
	}
}

func (s *GRPCServer) CreateEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	entry, report, err := s.vault.Create(ctx, userID, field(req, "site"), field(req, "username"), field(req, "secret"))
	if err != nil {
		return nil, toStatus(err)
	}

	m := entryFields(entry)
	strengthFields(m, report)
	return respond(m)
}

func (s *GRPCServer) GetEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	entry, secret, err := s.vault.Get(ctx, userID, field(req, "id"))
	if err != nil {
		return nil, toStatus(err)
	}

	m := entryFields(entry)
	m["secret"] = string(secret)
	return respond(m)
}

func (s *GRPCServer) ListEntries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.vault.List(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, 0, len(list))
	for _, e := range list {
		items = append(items, entryFields(e))
	}
	return respond(map[string]any{"entries": items})
}

func (s *GRPCServer) UpdateEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	entry, report, err := s.vault.Update(ctx, userID, field(req, "id"), field(req, "site"), field(req, "username"), field(req, "secret"))
	if err != nil {
		return nil, toStatus(err)
	}

	m := entryFields(entry)
	strengthFields(m, report)
	return respond(m)
}

func (s *GRPCServer) DeleteEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Delete(ctx, userID, field(req, "id")); err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{})
}

func (s *GRPCServer) ExportVault(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.vault.Export(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"export_id":   res.ID,
		"url":         res.URL,
		"entry_count": res.EntryCount,
		"expires_at":  res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *GRPCServer) ListExports(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.vault.Exports(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, 0, len(list))
	for _, e := range list {
		items = append(items, map[string]any{
			"export_id":   e.ID,
			"entry_count": e.EntryCount,
			"status":      e.Status,
			"created_at":  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return respond(map[string]any{"exports": items})
}
