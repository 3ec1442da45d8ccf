package transport

import (
	"context"
	"errors"
	"fmt"
)

// dialers maps each concrete protocol to its constructor. Tests replace
// entries to avoid network access.
var dialers = map[Protocol]func(context.Context, Options) (Transport, error){
	SFTP:  DialSFTP,
	FTP:   DialFTP,
	FTPS:  DialFTPS,
	S3:    DialS3,
	Local: func(context.Context, Options) (Transport, error) { return NewLocal(""), nil },
}

// autoOrder is the order Auto tries protocols in. A port of 22 means only
// SFTP makes sense, and 21 rules SFTP out.
func autoOrder(o Options) []Protocol {
	switch o.Port {
	case 22:
		return []Protocol{SFTP}
	case 21:
		return []Protocol{FTPS, FTP}
	default:
		return []Protocol{SFTP, FTPS, FTP}
	}
}

// Dial connects using opts.Protocol and returns the transport along with
// the protocol that was actually used. Auto tries each candidate once, in
// order, and returns the first that connects.
func Dial(ctx context.Context, opts Options) (Transport, Protocol, error) {
	proto, err := ParseProtocol(string(opts.Protocol))
	if err != nil {
		return nil, "", err
	}

	if proto != Auto {
		t, err := dialers[proto](ctx, opts)
		if err != nil {
			return nil, proto, fmt.Errorf("connecting via %s: %w", proto, err)
		}
		return t, proto, nil
	}

	var errs []error
	for _, candidate := range autoOrder(opts) {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		t, err := dialers[candidate](ctx, opts)
		if err == nil {
			logger.Info("connected", "protocol", candidate, "host", opts.Host)
			return t, candidate, nil
		}
		logger.Debug("protocol attempt failed", "protocol", candidate, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
	}

	return nil, "", fmt.Errorf("%w: %w", ErrNoTransport, errors.Join(errs...))
}
