package storage

const defaultRegion = "us-east-1"

// Options holds the connection settings for the storage client.
type Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UsePathStyle    bool
}

// Option mutates Options.
type Option func(*Options)

// WithRegion sets the region.
func WithRegion(region string) Option {
	return func(o *Options) {
		o.Region = region
	}
}

// WithEndpoint sets a custom endpoint for S3-compatible services.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.Endpoint = endpoint
	}
}

// WithStaticCredentials sets explicit credentials instead of the
// default provider chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *Options) {
		o.AccessKeyID = accessKeyID
		o.SecretAccessKey = secretAccessKey
		o.SessionToken = sessionToken
	}
}

// WithPathStyle forces path-style addressing, required by some
// S3-compatible services.
func WithPathStyle(enabled bool) Option {
	return func(o *Options) {
		o.UsePathStyle = enabled
	}
}
