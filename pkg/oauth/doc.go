// Package oauth provides the identity provider adapters used for social login.
//
// A Provider wraps an OAuth2 authorization code flow together with an adapter
// that turns a token into a provider-side user id and a set of connection
// values (display name, profile URL, image, email). Bundled adapters exist for
// Twitter, Facebook, Google, GitHub, LinkedIn, Foursquare and VK; any other id
// is built as a custom provider whose profile fields are mapped with gjson
// paths.
//
// # Configuration
//
// Provider settings come from a YAML file, the environment, or both, with the
// environment winning field by field:
//
//	configs, err := oauth.LoadConfigs("SOCIAL_", os.Environ(), "providers.yaml")
//	if err != nil {
//		return err
//	}
//	registry, err := oauth.NewRegistry(configs)
//
// A provider is discovered in the environment when SOCIAL_<ID>_CONSUMER_KEY or
// SOCIAL_<ID>_CONSUMER_SECRET is set. Extra parameters for the authorization
// and token requests are configured with AUTH_PARAMS and TOKEN_PARAMS as
// comma-separated key:value pairs:
//
//	SOCIAL_TWITTER_CONSUMER_KEY=xxx
//	SOCIAL_TWITTER_CONSUMER_SECRET=yyy
//	SOCIAL_TWITTER_AUTH_PARAMS=force_login:true
//
// Custom providers need all three endpoints and a field map:
//
//	providers:
//	  gitea:
//	    consumer_key: xxx
//	    consumer_secret: yyy
//	    authorize_url: https://git.example.com/login/oauth/authorize
//	    access_token_url: https://git.example.com/login/oauth/access_token
//	    profile_url: https://git.example.com/api/v1/user
//	    fields:
//	      id: id
//	      display_name: login
//	      full_name: full_name
//	      image_url: avatar_url
//	      email: email
//
// # Nil tokens
//
// Adapter methods treat a nil token as a denied authorization and return zero
// values without an error.
//
// # Testing
//
// Every provider accepts WithHTTPClient so token and profile calls can be
// routed to an httptest server.
package oauth
