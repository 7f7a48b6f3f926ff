// Package device talks to haptic actuators.
//
// Sender is the contract the command queue consumes: one method per command
// kind. Dispatch routes a command.Command to the matching method. Client is an
// HTTP implementation for the vendor cloud API, and DryRun is a logging stand-in
// for local development.
//
//	client, err := device.NewClient(device.Config{
//		BaseURL:  "https://api.example.com",
//		Username: "streamer",
//		APIKey:   "secret",
//	})
//	if err != nil {
//		return err
//	}
//	err = device.Dispatch(ctx, client, cmd)
package device
