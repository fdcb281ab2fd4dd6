package player

import (
	"context"
	"log/slog"
)

// Resolver picks a profile's display name: the account name on the request, then the
// account directory, then the stored player name, then DefaultName.
type Resolver struct {
	names     *Names
	directory Directory
	logger    *slog.Logger
}

// NewResolver builds a Resolver. directory may be nil.
func NewResolver(names *Names, directory Directory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{names: names, directory: directory, logger: logger}
}

// Names exposes the stored-name record.
func (r *Resolver) Names() *Names {
	return r.names
}

// Resolve never fails; lookup errors are logged and the next source is tried.
func (r *Resolver) Resolve(ctx context.Context, id Identity) Profile {
	profile := Profile{ProfileID: id.ProfileID, Age: id.Age}

	if name, ok := SanitizeName(id.Name); ok {
		profile.Name, profile.Source = name, SourceAccount
		return profile
	}

	if r.directory != nil && id.Email != "" {
		account, found, err := r.directory.Lookup(ctx, id.Email)
		if err != nil {
			r.logger.Warn("account lookup failed", slog.String("profile_id", id.ProfileID), slog.Any("error", err))
		}
		if found {
			if profile.Age == nil && account.Age != nil {
				profile.Age = SanitizeAge(float64(*account.Age))
			}
			if name, ok := SanitizeName(account.Name); ok {
				profile.Name, profile.Source = name, SourceDirectory
				return profile
			}
		}
	}

	if name, ok := r.names.Get(ctx, id.ProfileID); ok {
		profile.Name, profile.Source = name, SourceStored
		return profile
	}

	profile.Name, profile.Source = DefaultName, SourceDefault
	return profile
}
