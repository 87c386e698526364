package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartrecipe/backend/config"
	"github.com/smartrecipe/backend/internal/database"
	"github.com/smartrecipe/backend/internal/logger"
	"github.com/smartrecipe/backend/internal/metrics"
	"github.com/smartrecipe/backend/internal/service"
)

// Pantry combinations fed to the generator.
var ingredientSets = [][]string{
	{"chicken thighs", "lemon", "garlic", "rosemary"},
	{"chickpeas", "spinach", "coconut milk", "curry paste"},
	{"eggs", "tomato", "feta", "red onion"},
	{"salmon", "soy sauce", "ginger", "rice"},
	{"black beans", "corn", "tortillas", "avocado"},
	{"pasta", "zucchini", "parmesan", "basil"},
	{"oats", "banana", "peanut butter", "cinnamon"},
	{"beef mince", "potatoes", "carrots", "peas"},
	{"tofu", "broccoli", "sesame oil", "noodles"},
	{"lentils", "cumin", "tomato", "onion"},
	{"shrimp", "garlic", "chili flakes", "linguine"},
	{"mushrooms", "arborio rice", "thyme", "white wine"},
}

func main() {
	count := flag.Int("count", len(ingredientSets), "number of recipes to generate")
	parallel := flag.Int("parallel", 3, "concurrent generation requests")
	withImages := flag.Bool("images", false, "synthesize and store an image for each recipe")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	ctx := context.Background()
	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	openai := service.NewOpenAIClient(service.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   cfg.TextModel,
		ImageModel:  cfg.ImageModel,
		Temperature: cfg.Temperature,
	})

	var gateway *service.ImageGateway
	if *withImages {
		blobs, err := config.NewS3Store(ctx, cfg)
		if err != nil {
			log.Fatal("failed to create blob store", zap.Error(err))
		}
		gateway = service.NewImageGateway(openai, blobs, service.GatewayConfig{
			Folder:           cfg.AssetFolder,
			SynthesisTimeout: cfg.SynthesisTimeout,
			StorageTimeout:   cfg.StorageTimeout,
		}, log, nil)
	}

	m := metrics.New()
	generator := service.NewRecipeGenerator(openai, cfg.GenerationTimeout, log)
	pipeline := service.NewGenerationPipeline(generator, gateway, nil, log, m)
	recipes := service.NewRecipeService(db, gateway, log)

	seedUser, err := service.NewUserService(db, log).EnsureUser(ctx, uuid.New(), fmt.Sprintf("seed_%d", time.Now().Unix()), "")
	if err != nil {
		log.Fatal("failed to create seed user", zap.Error(err))
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for i := 0; i < *count; i++ {
		ingredients := ingredientSets[i%len(ingredientSets)]
		g.Go(func() error {
			result, err := pipeline.Generate(gctx, seedUser.ID, ingredients)
			if err != nil {
				log.Warn("skipping recipe", zap.Strings("ingredients", ingredients), zap.Error(err))
				return nil
			}

			fields := service.RecipeFields{
				RecipeName:   &result.RecipeName,
				Description:  &result.Description,
				CookingTime:  &result.CookingTime,
				Calories:     &result.Calories,
				Ingredients:  result.Ingredients,
				Instructions: result.Instructions,
				ImageURL:     result.Image,
			}
			recipe, err := recipes.Create(gctx, seedUser.ID, fields, nil)
			if err != nil {
				return fmt.Errorf("failed to save %q: %w", result.RecipeName, err)
			}
			created.Add(1)
			log.Info("created recipe", zap.String("recipe_id", recipe.ID.String()), zap.String("name", recipe.RecipeName))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal("seeding stopped", zap.Error(err))
	}
	log.Info("seeding finished", zap.Int64("created", created.Load()), zap.Int("requested", *count))
}
