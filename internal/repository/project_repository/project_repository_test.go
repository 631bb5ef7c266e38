package project_repository

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/project_model"
)

func TestResolveCapabilities(t *testing.T) {
	foremanID := 2
	project := &project_model.Project{
		ID:        "proj-1",
		CreatedBy: 1,
		ForemanID: &foremanID,
	}
	all := project_model.Capabilities{
		CanView: true, CanAddItems: true, CanManageBoard: true,
		CanApprove: true, CanReject: true,
	}

	cases := []struct {
		name   string
		actor  auth_model.Actor
		member *membership
		want   project_model.Capabilities
	}{
		{
			name:  "superuser bypasses membership",
			actor: auth_model.Actor{ID: 99, Role: auth_model.RoleSuperuser},
			want:  all,
		},
		{
			name:  "project creator manages",
			actor: auth_model.Actor{ID: 1, Role: auth_model.RoleContractor},
			want:  all,
		},
		{
			name:  "assigned foreman manages",
			actor: auth_model.Actor{ID: 2, Role: auth_model.RoleForeman},
			want:  all,
		},
		{
			name:   "member with the add flag",
			actor:  auth_model.Actor{ID: 3, Role: auth_model.RoleContractor},
			member: &membership{CanAddExpenses: true},
			want:   project_model.Capabilities{CanView: true, CanAddItems: true},
		},
		{
			name:   "member without the add flag",
			actor:  auth_model.Actor{ID: 3, Role: auth_model.RoleContractor},
			member: &membership{},
			want:   project_model.Capabilities{CanView: true},
		},
		{
			name:  "stranger gets nothing",
			actor: auth_model.Actor{ID: 4, Role: auth_model.RoleContractor},
			want:  project_model.Capabilities{},
		},
		{
			name:  "foreman role alone grants nothing on foreign projects",
			actor: auth_model.Actor{ID: 5, Role: auth_model.RoleForeman},
			want:  project_model.Capabilities{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveCapabilities(tc.actor, project, tc.member)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveCapabilitiesNoForeman(t *testing.T) {
	project := &project_model.Project{ID: "proj-1", CreatedBy: 1}

	got := resolveCapabilities(auth_model.Actor{ID: 2, Role: auth_model.RoleForeman}, project, nil)
	if got.CanView {
		t.Errorf("capabilities = %+v, want none for an unassigned foreman", got)
	}
}
