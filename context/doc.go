// Package context wires reportflow services together and carries them
// through context.Context.
//
// Services collects the collaborators of a run: the analytics source, the
// generator, the notifier, the artifact, checkpoint and transcript stores,
// the prompt loader, the observer and the resolved settings. NewServices builds all of
// them from config.Settings and Close releases the checkpoint database;
// tests usually fill the struct by hand.
//
//	svc, err := context.NewServices(ctx, context.Config{Settings: settings})
//	if err != nil {
//	    return err
//	}
//	ctx = svc.InjectAll(ctx)
//	gen := context.MustGenerator(ctx)
package context
