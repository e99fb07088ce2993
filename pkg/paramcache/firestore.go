package paramcache

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore-backed store.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// firestoreParameter is the document shape for one parameter. The full
// remote path is stored in a field because document IDs cannot contain
// forward slashes; IDs are the URL-escaped path.
type firestoreParameter struct {
	Name  string `firestore:"name"`
	Value string `firestore:"value"`
	Type  string `firestore:"type"`
}

// FirestoreStore is a ParameterStore over a Firestore collection holding one
// document per parameter path. WithDecryption is ignored: Firestore has no
// server-side decryption concept.
type FirestoreStore struct {
	client         *firestore.Client
	collectionName string
	logger         zerolog.Logger
}

// NewFirestoreStore creates a FirestoreStore over an injected client. The
// client's lifecycle is managed by the caller.
func NewFirestoreStore(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("FirestoreStore initialized.")

	return &FirestoreStore{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// GetParameters fetches the batch in one bulk GetAll call. Paths with no
// document are skipped, matching the store contract's silent-miss behaviour.
func (s *FirestoreStore) GetParameters(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	refs := make([]*firestore.DocumentRef, len(req.Names))
	for i, name := range req.Names {
		refs[i] = s.client.Collection(s.collectionName).Doc(DocIDForPath(name))
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		code := status.Code(err)
		if code == codes.PermissionDenied || code == codes.Unauthenticated {
			s.logger.Error().Err(err).Str("grpc_code", code.String()).Msg("Not authorized to read parameter documents.")
			return BatchResponse{}, fmt.Errorf("firestore get all denied (%s): %w", code, err)
		}
		s.logger.Error().Err(err).Str("grpc_code", code.String()).Int("batch_size", len(refs)).Msg("Failed to get documents from Firestore.")
		return BatchResponse{}, fmt.Errorf("firestore get all (%s): %w", code, err)
	}

	resp := BatchResponse{Parameters: make([]Parameter, 0, len(snaps))}
	for i, snap := range snaps {
		if !snap.Exists() {
			s.logger.Debug().Str("path", req.Names[i]).Msg("Parameter document not found in Firestore.")
			continue
		}
		var doc firestoreParameter
		if err := snap.DataTo(&doc); err != nil {
			s.logger.Error().Err(err).Str("path", req.Names[i]).Msg("Failed to map Firestore document data.")
			return BatchResponse{}, fmt.Errorf("firestore DataTo for %s: %w", req.Names[i], err)
		}
		resp.Parameters = append(resp.Parameters, Parameter{
			Name:  req.Names[i],
			Value: doc.Value,
			Type:  doc.Type,
		})
	}
	return resp, nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (s *FirestoreStore) Close() error {
	s.logger.Info().Msg("FirestoreStore does not close the injected Firestore client.")
	return nil
}

// DocIDForPath maps a remote parameter path to its Firestore document ID.
// Exported so writers populating the collection use the same scheme.
func DocIDForPath(path string) string {
	return url.PathEscape(path)
}
