// Package catalog provides the built-in resource kinds and a fluent builder over the resource
// registry.
//
//	app, _ := catalog.NewApp()
//	storage := app.AddBicep("storage", "storage")
//	blobs := app.AddValue("blobs", "{0}", storage.Output("blobEndpoint"))
//	app.AddProject("web", "../web/web.csproj").
//		WithHTTPEndpoint(0, 8080).
//		WithReference(blobs)
//	if err := app.Err(); err != nil {
//		return err
//	}
//	result, err := app.Publisher(manifest.Options{OutputPath: "out"}).Publish(ctx)
package catalog
