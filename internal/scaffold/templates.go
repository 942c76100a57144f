package scaffold

import "text/template"

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

var serverModelTemplate = mustParse("model.go", `package {{.Camel}}

{{- $needsTime := false}}
{{- range .Fields}}{{if eq .ServerType "time.Time"}}{{$needsTime = true}}{{end}}{{end}}
{{if $needsTime}}
import "time"
{{end}}
// {{.Name}} is the persisted shape of a {{.Camel}}.
type {{.Name}} struct {
{{- if .Identifier}}
	{{.Identifier.Pascal}} {{.Identifier.ServerType}}
{{- end}}
{{- range .Fields}}
	{{.Pascal}} {{if .Nullable}}*{{end}}{{.ServerType}}
{{- end}}
}
`)

var serverRequestsTemplate = mustParse("requests.go", `package {{.Camel}}

{{- $needsTime := false}}
{{- range .Fields}}{{if eq .ServerType "time.Time"}}{{$needsTime = true}}{{end}}{{end}}
{{if $needsTime}}
import "time"
{{end}}
// Create{{.Name}}Request carries the fields accepted when creating a {{.Camel}}.
type Create{{.Name}}Request struct {
{{- range .Fields}}
	{{.Pascal}} {{if .Nullable}}*{{end}}{{.ServerType}} ` + "`" + `json:"{{.Camel}}"` + "`" + `
{{- end}}
}

// Update{{.Name}}Request carries the fields accepted when updating a {{.Camel}}.
type Update{{.Name}}Request struct {
{{- range .Fields}}
	{{.Pascal}} {{if .Nullable}}*{{end}}{{.ServerType}} ` + "`" + `json:"{{.Camel}}"` + "`" + `
{{- end}}
}

// Search{{.Plural}}Request carries paging parameters for listing {{.PluralCamel}}.
type Search{{.Plural}}Request struct {
	PageNumber int ` + "`" + `json:"pageNumber"` + "`" + `
	PageSize   int ` + "`" + `json:"pageSize"` + "`" + `
}
`)

var serverResponseTemplate = mustParse("response.go", `package {{.Camel}}

{{- $needsTime := false}}
{{- range .Fields}}{{if eq .ServerType "time.Time"}}{{$needsTime = true}}{{end}}{{end}}
{{if $needsTime}}
import "time"
{{end}}
// {{.Name}}Response is the wire shape of a {{.Camel}}.
type {{.Name}}Response struct {
{{- if .Identifier}}
	{{.Identifier.Pascal}} {{.Identifier.ServerType}} ` + "`" + `json:"{{.Identifier.Camel}}"` + "`" + `
{{- end}}
{{- range .Fields}}
	{{.Pascal}} {{if .Nullable}}*{{end}}{{.ServerType}} ` + "`" + `json:"{{.Camel}}"` + "`" + `
{{- end}}
}

// New{{.Name}}Response maps a {{.Camel}} onto its wire shape.
func New{{.Name}}Response(model {{.Name}}) {{.Name}}Response {
	return {{.Name}}Response{
{{- if .Identifier}}
		{{.Identifier.Pascal}}: model.{{.Identifier.Pascal}},
{{- end}}
{{- range .Fields}}
		{{.Pascal}}: model.{{.Pascal}},
{{- end}}
	}
}
`)

var serverServiceTemplate = mustParse("service.go", `package {{.Camel}}

import (
	"context"

	"go.uber.org/zap"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Create(ctx context.Context, model *{{.Name}}) error
	GetByID(ctx context.Context, id {{if .Identifier}}{{.Identifier.ServerType}}{{else}}string{{end}}) (*{{.Name}}, error)
	Search(ctx context.Context, pageNumber, pageSize int) ([]{{.Name}}, int64, error)
	Update(ctx context.Context, model *{{.Name}}) error
	Delete(ctx context.Context, id {{if .Identifier}}{{.Identifier.ServerType}}{{else}}string{{end}}) error
}

// Service implements {{.Camel}} management.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService wires a Service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores a new {{.Camel}}.
func (s *Service) Create(ctx context.Context, req Create{{.Name}}Request) (*{{.Name}}, error) {
	model := &{{.Name}}{
{{- range .Fields}}
		{{.Pascal}}: req.{{.Pascal}},
{{- end}}
	}
	if err := s.repo.Create(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

// Get loads one {{.Camel}} by its identifier.
func (s *Service) Get(ctx context.Context, id {{if .Identifier}}{{.Identifier.ServerType}}{{else}}string{{end}}) (*{{.Name}}, error) {
	return s.repo.GetByID(ctx, id)
}

// Search lists {{.PluralCamel}} one page at a time.
func (s *Service) Search(ctx context.Context, req Search{{.Plural}}Request) ([]{{.Name}}, int64, error) {
	pageNumber := req.PageNumber
	if pageNumber < 1 {
		pageNumber = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.Search(ctx, pageNumber, pageSize)
}

// Update replaces the mutable fields of a {{.Camel}}.
func (s *Service) Update(ctx context.Context, id {{if .Identifier}}{{.Identifier.ServerType}}{{else}}string{{end}}, req Update{{.Name}}Request) (*{{.Name}}, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
{{- range .Fields}}
	model.{{.Pascal}} = req.{{.Pascal}}
{{- end}}
	if err := s.repo.Update(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

// Delete removes a {{.Camel}}.
func (s *Service) Delete(ctx context.Context, id {{if .Identifier}}{{.Identifier.ServerType}}{{else}}string{{end}}) error {
	return s.repo.Delete(ctx, id)
}
`)

var serverHandlerTemplate = mustParse("handler.go", `package {{.Camel}}

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes {{.Camel}} management over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler wires a Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Search handles GET /{{.PluralKebab}}.
func (h *Handler) Search(c *gin.Context) {
	var req Search{{.Plural}}Request
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"invalid query parameters"}})
		return
	}

	models, total, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("search {{.PluralCamel}}", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{"An unexpected error occurred. Please try again later."}})
		return
	}

	responses := make([]{{.Name}}Response, 0, len(models))
	for _, model := range models {
		responses = append(responses, New{{.Name}}Response(model))
	}
	c.JSON(http.StatusOK, gin.H{"result": gin.H{"data": responses, "totalCount": total}, "errors": []string{}})
}

// Create handles POST /{{.PluralKebab}}.
func (h *Handler) Create(c *gin.Context) {
	var req Create{{.Name}}Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"invalid request body"}})
		return
	}

	model, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("create {{.Camel}}", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{"An unexpected error occurred. Please try again later."}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": New{{.Name}}Response(*model), "errors": []string{}})
}
`)

var serverRoutesTemplate = mustParse("routes.go", `package {{.Camel}}

import "github.com/gin-gonic/gin"

// RegisterRoutes binds the {{.Camel}} endpoints onto a router group.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	group := r.Group("/{{.PluralKebab}}")
	group.GET("", handler.Search)
	group.POST("", handler.Create)
}
`)

var clientModelTemplate = mustParse("model.ts", `export interface {{.Name}} {
{{- if .Identifier}}
  {{.Identifier.Camel}}: {{.Identifier.ClientType}};
{{- end}}
{{- range .Fields}}
  {{.Camel}}{{if .Nullable}}?{{end}}: {{.ClientType}};
{{- end}}
}

export interface Create{{.Name}}Request {
{{- range .Fields}}
  {{.Camel}}{{if .Nullable}}?{{end}}: {{.ClientType}};
{{- end}}
}

export interface Update{{.Name}}Request {
{{- range .Fields}}
  {{.Camel}}{{if .Nullable}}?{{end}}: {{.ClientType}};
{{- end}}
}
`)

var clientDataServiceTemplate = mustParse("data-service.ts", `import { HttpClient } from '@angular/common/http';
import { Injectable } from '@angular/core';
import { Observable } from 'rxjs';

import { {{.Name}}, Create{{.Name}}Request, Update{{.Name}}Request } from '../models/{{.Kebab}}.model';

@Injectable({ providedIn: 'root' })
export class {{.Name}}DataService {
  private readonly baseUrl = '/api/{{.PluralKebab}}';

  constructor(private readonly http: HttpClient) {}

  search(pageNumber: number, pageSize: number): Observable<{{.Name}}[]> {
    return this.http.get<{{.Name}}[]>(this.baseUrl, { params: { pageNumber, pageSize } });
  }

  get(id: {{if .Identifier}}{{.Identifier.ClientType}}{{else}}string{{end}}): Observable<{{.Name}}> {
    return this.http.get<{{.Name}}>(` + "`${this.baseUrl}/${id}`" + `);
  }

  create(request: Create{{.Name}}Request): Observable<{{.Name}}> {
    return this.http.post<{{.Name}}>(this.baseUrl, request);
  }

  update(id: {{if .Identifier}}{{.Identifier.ClientType}}{{else}}string{{end}}, request: Update{{.Name}}Request): Observable<{{.Name}}> {
    return this.http.put<{{.Name}}>(` + "`${this.baseUrl}/${id}`" + `, request);
  }

  delete(id: {{if .Identifier}}{{.Identifier.ClientType}}{{else}}string{{end}}): Observable<void> {
    return this.http.delete<void>(` + "`${this.baseUrl}/${id}`" + `);
  }
}
`)

var clientAreaServiceTemplate = mustParse("area-service.ts", `import { Injectable } from '@angular/core';
import { BehaviorSubject, Observable } from 'rxjs';

import { {{.Name}} } from '../models/{{.Kebab}}.model';
import { {{.Name}}DataService } from './{{.Kebab}}.service';

@Injectable({ providedIn: 'root' })
export class {{.Name}}AreaService {
  private readonly itemsSubject = new BehaviorSubject<{{.Name}}[]>([]);
  readonly items$: Observable<{{.Name}}[]> = this.itemsSubject.asObservable();

  constructor(private readonly data: {{.Name}}DataService) {}

  refresh(pageNumber: number, pageSize: number): void {
    this.data.search(pageNumber, pageSize).subscribe(items => this.itemsSubject.next(items));
  }
}
`)

var clientListComponentTemplate = mustParse("list.component.ts", `import { Component, OnInit } from '@angular/core';

import { {{.Name}} } from '../../models/{{.Kebab}}.model';
import { {{.Name}}AreaService } from '../../services/{{.Kebab}}-area.service';

@Component({
  selector: 'app-{{.Kebab}}-list',
  templateUrl: './{{.Kebab}}-list.component.html',
})
export class {{.Name}}ListComponent implements OnInit {
  items: {{.Name}}[] = [];

  constructor(private readonly area: {{.Name}}AreaService) {}

  ngOnInit(): void {
    this.area.items$.subscribe(items => (this.items = items));
    this.area.refresh(1, 20);
  }
}
`)

var clientDetailComponentTemplate = mustParse("detail.component.ts", `import { Component, OnInit } from '@angular/core';
import { ActivatedRoute } from '@angular/router';

import { {{.Name}} } from '../../models/{{.Kebab}}.model';
import { {{.Name}}DataService } from '../../services/{{.Kebab}}.service';

@Component({
  selector: 'app-{{.Kebab}}-detail',
  templateUrl: './{{.Kebab}}-detail.component.html',
})
export class {{.Name}}DetailComponent implements OnInit {
  item?: {{.Name}};

  constructor(
    private readonly route: ActivatedRoute,
    private readonly data: {{.Name}}DataService,
  ) {}

  ngOnInit(): void {
    const id = this.route.snapshot.paramMap.get('id');
    if (id !== null) {
      this.data.get({{if .Identifier}}{{if eq .Identifier.ClientType "number"}}Number(id){{else}}id{{end}}{{else}}id{{end}}).subscribe(item => (this.item = item));
    }
  }
}
`)

var clientCreateComponentTemplate = mustParse("create.component.ts", `import { Component } from '@angular/core';
import { Router } from '@angular/router';

import { Create{{.Name}}Request } from '../../models/{{.Kebab}}.model';
import { {{.Name}}DataService } from '../../services/{{.Kebab}}.service';

@Component({
  selector: 'app-{{.Kebab}}-create',
  templateUrl: './{{.Kebab}}-create.component.html',
})
export class {{.Name}}CreateComponent {
  request: Partial<Create{{.Name}}Request> = {};

  constructor(
    private readonly data: {{.Name}}DataService,
    private readonly router: Router,
  ) {}

  submit(): void {
    this.data.create(this.request as Create{{.Name}}Request).subscribe(() => {
      this.router.navigate(['/{{.PluralKebab}}']);
    });
  }
}
`)

var clientEditComponentTemplate = mustParse("edit.component.ts", `import { Component, OnInit } from '@angular/core';
import { ActivatedRoute, Router } from '@angular/router';

import { Update{{.Name}}Request } from '../../models/{{.Kebab}}.model';
import { {{.Name}}DataService } from '../../services/{{.Kebab}}.service';

@Component({
  selector: 'app-{{.Kebab}}-edit',
  templateUrl: './{{.Kebab}}-edit.component.html',
})
export class {{.Name}}EditComponent implements OnInit {
  request: Partial<Update{{.Name}}Request> = {};
  private id{{if .Identifier}}?: {{.Identifier.ClientType}}{{else}}?: string{{end}};

  constructor(
    private readonly route: ActivatedRoute,
    private readonly data: {{.Name}}DataService,
    private readonly router: Router,
  ) {}

  ngOnInit(): void {
    const id = this.route.snapshot.paramMap.get('id');
    if (id !== null) {
      this.id = {{if .Identifier}}{{if eq .Identifier.ClientType "number"}}Number(id){{else}}id{{end}}{{else}}id{{end}};
      this.data.get(this.id).subscribe(item => (this.request = { ...item }));
    }
  }

  submit(): void {
    if (this.id === undefined) {
      return;
    }
    this.data.update(this.id, this.request as Update{{.Name}}Request).subscribe(() => {
      this.router.navigate(['/{{.PluralKebab}}']);
    });
  }
}
`)
