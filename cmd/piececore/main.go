// Command piececore is a maintenance CLI over the piece inventory: it wires
// the environment-selected storage drivers into a sync engine and exposes
// the engine operations as subcommands.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"piececore/internal/engine"
	"piececore/internal/infra"
	"piececore/internal/obs"
	"piececore/pkg/domain"
)

const usage = `usage: piececore <command> [args]

commands:
  init                 probe the remote store and run migrations
  list                 print every piece as JSON
  get <id>             print one piece
  page <n> [size]      print one page of pieces
  search <query>       substring search across all fields
  add <json>           add a piece from a JSON record
  update <id> <json>   update a piece from a JSON record
  delete <id>          delete one piece
  delete-all           delete every piece (requires admin role)
  import <file>        bulk upsert pieces from an export file
  export <file>        write the collection to an export file
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "piececore: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	logger, err := obs.NewZapLogger(obs.LogConfig{
		Level:  os.Getenv("PIECECORE_LOG_LEVEL"),
		Format: os.Getenv("PIECECORE_LOG_FORMAT"),
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync()

	remote, err := infra.OpenRemoteStore(ctx)
	if err != nil {
		return fmt.Errorf("open remote store: %w", err)
	}
	kv, err := infra.OpenKeyValueStore()
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer kv.Close()
	settings, err := infra.OpenSettingsStore()
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}

	metrics, err := obs.NewPrometheusRecorder(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	eng := engine.New(remote, kv, settings,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.WithConnectivity(probeConnectivity(ctx, remote)),
	)

	role := domain.Role(strings.TrimSpace(os.Getenv("PIECECORE_ROLE")))
	if role == "" {
		role = domain.RoleAdmin
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return eng.Init(ctx)
	case "list":
		return printJSON(eng.GetAllPieces(ctx))
	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: piececore get <id>")
		}
		piece, ok := eng.GetPiece(ctx, rest[0])
		if !ok {
			return fmt.Errorf("piece %s not found", rest[0])
		}
		return printJSON(piece)
	case "page":
		page, size := 1, 20
		if len(rest) > 0 {
			fmt.Sscanf(rest[0], "%d", &page)
		}
		if len(rest) > 1 {
			fmt.Sscanf(rest[1], "%d", &size)
		}
		return printJSON(eng.GetPiecesPaginated(ctx, page, size))
	case "search":
		if len(rest) != 1 {
			return fmt.Errorf("usage: piececore search <query>")
		}
		return printJSON(eng.SearchPieces(ctx, rest[0], 0))
	case "add":
		if !domain.HasPermission(role, domain.RoleTechnician) {
			return fmt.Errorf("role %s cannot add pieces", role)
		}
		rec, err := parseRecord(rest)
		if err != nil {
			return err
		}
		piece, err := eng.AddPiece(ctx, rec)
		if err != nil {
			return err
		}
		return printJSON(piece)
	case "update":
		if !domain.HasPermission(role, domain.RoleTechnician) {
			return fmt.Errorf("role %s cannot update pieces", role)
		}
		if len(rest) != 2 {
			return fmt.Errorf("usage: piececore update <id> <json>")
		}
		rec, err := parseRecord(rest[1:])
		if err != nil {
			return err
		}
		piece, err := eng.UpdatePiece(ctx, rest[0], rec)
		if err != nil {
			return err
		}
		return printJSON(piece)
	case "delete":
		if !domain.HasPermission(role, domain.RoleSupervisor) {
			return fmt.Errorf("role %s cannot delete pieces", role)
		}
		if len(rest) != 1 {
			return fmt.Errorf("usage: piececore delete <id>")
		}
		return eng.DeletePiece(ctx, rest[0])
	case "delete-all":
		if !domain.HasPermission(role, domain.RoleAdmin) {
			return fmt.Errorf("role %s cannot delete the collection", role)
		}
		count, err := eng.DeleteAllPieces(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d pieces\n", count)
		return nil
	case "import":
		if !domain.HasPermission(role, domain.RoleSupervisor) {
			return fmt.Errorf("role %s cannot import pieces", role)
		}
		if len(rest) != 1 {
			return fmt.Errorf("usage: piececore import <file>")
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		count, err := eng.ImportJSON(ctx, data)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d pieces\n", count)
		return nil
	case "export":
		if len(rest) != 1 {
			return fmt.Errorf("usage: piececore export <file>")
		}
		data, err := eng.ExportJSON(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(rest[0], data, 0o644)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// probeConnectivity samples reachability with a lightweight remote probe on
// every check, matching the call-time sampling of the engine contract.
func probeConnectivity(ctx context.Context, remote domain.RemoteStore) domain.ConnectivityChecker {
	return domain.ConnectivityFunc(func() bool {
		return remote.Probe(ctx) == nil
	})
}

func parseRecord(rest []string) (domain.RawRecord, error) {
	if len(rest) != 1 {
		return nil, fmt.Errorf("expected one JSON record argument")
	}
	var rec domain.RawRecord
	if err := json.Unmarshal([]byte(rest[0]), &rec); err != nil {
		return nil, fmt.Errorf("invalid record JSON: %w", err)
	}
	return rec, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
