package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/colaai-billing/internal/config"
	"github.com/xavierca1/colaai-billing/internal/infra/database"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	dbURL := config.GetEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal().Msg("DATABASE_URL é obrigatória")
	}

	m, err := database.NewMigrator(dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("falha ao inicializar migrations")
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Error().AnErr("source", sourceErr).AnErr("db", dbErr).Msg("erro ao fechar migrate")
		}
	}()

	switch os.Args[1] {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Info().Msg("nada a fazer, banco já está na última versão")
		case err != nil:
			log.Fatal().Err(err).Msg("falha ao aplicar migrations")
		default:
			log.Info().Msg("✅ migrations aplicadas")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatal().Err(err).Msg("falha ao reverter a última migration")
		}
		log.Info().Msg("↩️ última migration revertida")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatal().Msg("informe a versão: migrate goto N")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatal().Err(err).Msg("versão inválida")
		}
		err = m.Migrate(uint(version))
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Info().Uint64("version", version).Msg("banco já está nessa versão")
		case err != nil:
			log.Fatal().Err(err).Uint64("version", version).Msg("falha ao migrar")
		default:
			log.Info().Uint64("version", version).Msg("✅ migrado")
		}

	case "force":
		if len(os.Args) < 3 {
			log.Fatal().Msg("informe a versão: migrate force N")
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("versão inválida")
		}
		if err := m.Force(version); err != nil {
			log.Fatal().Err(err).Msg("falha ao forçar versão")
		}
		log.Info().Int("version", version).Msg("versão forçada, flag dirty limpa")

	case "status":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Info().Msg("nenhuma migration aplicada ainda")
		case err != nil:
			log.Fatal().Err(err).Msg("falha ao ler versão")
		default:
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("versão atual")
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Uso: go run ./cmd/migrate [comando]")
	fmt.Println("Comandos:")
	fmt.Println("  up       - aplica todas as migrations pendentes")
	fmt.Println("  down     - reverte a última migration")
	fmt.Println("  goto N   - migra até a versão N")
	fmt.Println("  force N  - força a versão N (limpa dirty)")
	fmt.Println("  status   - mostra a versão atual")
}
