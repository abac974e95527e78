// Package plugin implements the capability-module layer of the platform:
// a registry of named actions and providers, plus a lifecycle manager that
// initializes plugins in dependency order and tears them down in reverse.
//
// A plugin is declared as data (name, version, dependencies) with two
// optional hooks. Init receives the shared registry and is where the plugin
// publishes its services:
//
//	mgr.Register(&plugin.Plugin{
//	    Name:         "wallet",
//	    Version:      "1.2.0",
//	    Dependencies: []string{"chain"},
//	    Init: func(ctx context.Context, reg *plugin.Registry) error {
//	        return reg.RegisterAction("wallet", "getBalance", nil, balanceAction)
//	    },
//	    Destroy: func(ctx context.Context) error { return conn.Close() },
//	})
//
// Registration never runs plugin code; dependency resolution and Init happen
// when Start is called. Because a plugin's dependencies are guaranteed live
// before its own Init runs, it may call into their registered services during
// startup.
package plugin
