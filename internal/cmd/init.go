package cmd

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/config"
	"github.com/docuchat/docuchat/core/embedding"
	"github.com/docuchat/docuchat/core/file_store"
	"github.com/docuchat/docuchat/core/ingest"
	"github.com/docuchat/docuchat/core/retriever"
	"github.com/docuchat/docuchat/core/splitter"
	"github.com/docuchat/docuchat/internal/controller/docuchat"
	"github.com/docuchat/docuchat/internal/dao"
	"github.com/docuchat/docuchat/internal/logic/chat"
	"github.com/docuchat/docuchat/internal/logic/document"
)

// initComponents 初始化全部组件并组装控制器
func initComponents(ctx context.Context) (*docuchat.ControllerV1, error) {
	g.Log().Info(ctx, "Validating application configuration...")
	if err := config.ValidateConfiguration(ctx); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := dao.InitDB(); err != nil {
		return nil, fmt.Errorf("database connection initialization failed: %w", err)
	}

	// Embedding 调度器，维度在这里定死，贯穿建表和运行期校验
	embCfg := config.LoadEmbeddingConfig(ctx)
	provider, err := embedding.NewOpenAIProvider(embedding.ProviderConfig{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider initialization failed: %w", err)
	}
	dispatcher, err := embedding.NewDispatcher(provider, embCfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("embedding dispatcher initialization failed: %w", err)
	}

	// 向量存储
	store, err := initChunkStore(ctx, embCfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("chunk store initialization failed: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("chunk store collection initialization failed: %w", err)
	}

	// 分片器
	splitCfg := config.LoadSplitConfig(ctx)
	split, err := splitter.New(ctx, splitter.Config{
		ChunkSize:    splitCfg.ChunkSize,
		ChunkOverlap: splitCfg.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("splitter initialization failed: %w", err)
	}

	// 摄取编排
	loader, err := ingest.NewPDFLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("pdf loader initialization failed: %w", err)
	}
	documents := document.NewService(store)
	orchestrator, err := ingest.NewOrchestrator(loader, split, dispatcher, store, documents)
	if err != nil {
		return nil, fmt.Errorf("ingest orchestrator initialization failed: %w", err)
	}

	// 检索引擎
	retCfg := config.LoadRetrieveConfig(ctx)
	engine, err := retriever.NewEngine(dispatcher, store,
		retriever.WithTopK(retCfg.TopK),
		retriever.WithNumCandidates(retCfg.NumCandidates),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval engine initialization failed: %w", err)
	}

	// 问答模型
	chatCfg := config.LoadChatConfig(ctx)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: chatCfg.BaseURL,
		APIKey:  chatCfg.APIKey,
		Model:   chatCfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("chat model initialization failed: %w", err)
	}
	answerer, err := chat.NewAnswerer(chatModel, engine)
	if err != nil {
		return nil, fmt.Errorf("answerer initialization failed: %w", err)
	}

	// 上传暂存
	upCfg := config.LoadUploadConfig(ctx)
	uploads, err := file_store.NewLocalStorage(upCfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("upload storage initialization failed: %w", err)
	}

	g.Log().Info(ctx, "✓ All components initialized successfully")
	return docuchat.NewV1(documents, orchestrator, engine, answerer, uploads, upCfg.MaxBytes), nil
}

// initChunkStore 按配置创建 Milvus 或 PostgreSQL 向量存储
func initChunkStore(ctx context.Context, dim int) (chunkstore.Store, error) {
	storeCfg := config.LoadStoreConfig(ctx)

	switch storeCfg.Type {
	case "milvus":
		address := g.Cfg().MustGet(ctx, "milvus.address", "").String()
		database := g.Cfg().MustGet(ctx, "milvus.database", "default").String()
		if address == "" {
			return nil, fmt.Errorf("milvus.address is required but not found in config file")
		}

		g.Log().Infof(ctx, "Connecting to Milvus at: %s, database: %s", address, database)
		client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
			Address: address,
			DBName:  database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create milvus client (address: %s): %w", address, err)
		}

		return chunkstore.New(&chunkstore.Config{
			Type:       chunkstore.StoreTypeMilvus,
			Client:     client,
			Collection: storeCfg.Collection,
			Dim:        dim,
		})

	case "postgres":
		host := g.Cfg().MustGet(ctx, "postgres.host", "").String()
		port := g.Cfg().MustGet(ctx, "postgres.port", "5432").String()
		user := g.Cfg().MustGet(ctx, "postgres.user", "").String()
		password := g.Cfg().MustGet(ctx, "postgres.password", "").String()
		database := g.Cfg().MustGet(ctx, "postgres.database", "").String()
		sslMode := g.Cfg().MustGet(ctx, "postgres.sslmode", "disable").String()

		if host == "" || user == "" || database == "" {
			return nil, fmt.Errorf("postgres configuration is incomplete. Required: host, user, database")
		}

		var connStr string
		if password != "" {
			connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				host, port, user, password, database, sslMode)
		} else {
			connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
				host, port, user, database, sslMode)
		}

		g.Log().Infof(ctx, "Connecting to PostgreSQL at: %s:%s, database: %s", host, port, database)
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}

		return chunkstore.New(&chunkstore.Config{
			Type:       chunkstore.StoreTypePostgreSQL,
			Client:     pool,
			Collection: storeCfg.Collection,
			Dim:        dim,
		})

	default:
		return nil, fmt.Errorf("unsupported chunk store type: %s", storeCfg.Type)
	}
}
