package cmd

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/os/gcmd"
)

var (
	Main = gcmd.Command{
		Name:  "main",
		Usage: "main",
		Brief: "start docuchat http server",
		Func: func(ctx context.Context, parser *gcmd.Parser) (err error) {
			controller, err := initComponents(ctx)
			if err != nil {
				g.Log().Fatalf(ctx, "Component initialization failed: %v", err)
			}

			s := g.Server()
			s.Group("/api", func(group *ghttp.RouterGroup) {
				group.Middleware(MiddlewareMultipartMaxMemory, MiddlewareHandlerResponse, ghttp.MiddlewareCORS)
				group.Bind(
					controller,
				)
			})
			s.Run()
			return nil
		},
	}
)
