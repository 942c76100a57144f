package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAdministrators(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		want    []AdministratorSeed
		wantErr bool
	}{
		{
			name:    "bare email grants only",
			entries: []string{"admin@example.com"},
			want:    []AdministratorSeed{{Email: "admin@example.com"}},
		},
		{
			name:    "full triple",
			entries: []string{"root:root@example.com:S3cret!pass"},
			want: []AdministratorSeed{{
				UserName: "root",
				Email:    "root@example.com",
				Password: "S3cret!pass",
			}},
		},
		{
			name:    "password keeps its colons",
			entries: []string{"root:root@example.com:pa:ss:word"},
			want: []AdministratorSeed{{
				UserName: "root",
				Email:    "root@example.com",
				Password: "pa:ss:word",
			}},
		},
		{
			name:    "blank entries dropped",
			entries: []string{"  ", "", "admin@example.com"},
			want:    []AdministratorSeed{{Email: "admin@example.com"}},
		},
		{
			name:    "two parts is malformed",
			entries: []string{"root:root@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SeedSettings{Administrators: tt.entries}.ParseAdministrators()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
